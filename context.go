package quorum

import (
	"context"
	"fmt"
	"regexp"

	"github.com/tendermint/tendermint/libs/log"
)

// Context is just an alias for the standard implementation.
// We use functions to extract/set info.
type Context = context.Context

type contextKey int // local to the quorum module

const (
	contextKeyLogger contextKey = iota
	contextKeyWalletID
)

var (
	// DefaultLogger is used for all context that have not
	// set anything themselves
	DefaultLogger = log.NewNopLogger()

	// IsValidWalletID is the RegExp to ensure valid wallet IDs
	IsValidWalletID = regexp.MustCompile(`^[a-z0-9_\-]{2,32}$`).MatchString
)

// WithLogger sets the logger for this context.
func WithLogger(ctx Context, logger log.Logger) Context {
	return context.WithValue(ctx, contextKeyLogger, logger)
}

// WithLogInfo accepts keyvalue pairs, and returns another
// context like this, after passing all the keyvals to the
// Logger
func WithLogInfo(ctx Context, keyvals ...interface{}) Context {
	logger := GetLogger(ctx).With(keyvals...)
	return WithLogger(ctx, logger)
}

// GetLogger returns the currently set logger, or
// DefaultLogger if none was set
func GetLogger(ctx Context) log.Logger {
	val, ok := ctx.Value(contextKeyLogger).(log.Logger)
	if !ok {
		return DefaultLogger
	}
	return val
}

// WithWalletID sets the wallet id for the context. Signatures are bound to a
// wallet id so that they cannot be replayed against another wallet.
//
// Panics if the wallet id is already set or invalid.
func WithWalletID(ctx Context, walletID string) Context {
	if ctx.Value(contextKeyWalletID) != nil {
		panic("Tried to set the wallet id twice")
	}
	if !IsValidWalletID(walletID) {
		panic(fmt.Sprintf("Invalid wallet id: %q", walletID))
	}
	return context.WithValue(ctx, contextKeyWalletID, walletID)
}

// GetWalletID returns the wallet id set in the context and a flag telling
// if it was set at all.
func GetWalletID(ctx Context) (string, bool) {
	val, ok := ctx.Value(contextKeyWalletID).(string)
	return val, ok
}
