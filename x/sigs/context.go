package sigs

import (
	"context"

	"github.com/iov-one/quorum"
)

type contextKey int // local to the sigs module

const (
	contextKeySigners contextKey = iota
)

// withSigners is a private method, as only this module
// can add a signer
func withSigners(ctx quorum.Context, signers []quorum.Condition) quorum.Context {
	return context.WithValue(ctx, contextKeySigners, signers)
}

// Authenticate reports the signers verified by Authorize.
type Authenticate struct{}

var _ quorum.Authenticator = Authenticate{}

// GetConditions returns who signed the current Context.
// May be empty
func (a Authenticate) GetConditions(ctx quorum.Context) []quorum.Condition {
	// (val, ok) form to return nil instead of panic if unset
	val, _ := ctx.Value(contextKeySigners).([]quorum.Condition)
	return val
}

// HasAddress returns true if addr signed the current Context.
func (a Authenticate) HasAddress(ctx quorum.Context, addr quorum.Address) bool {
	for _, s := range a.GetConditions(ctx) {
		if addr.Equals(s.Address()) {
			return true
		}
	}
	return false
}

// Authorize verifies all signatures and returns a context that
// authenticates their signers. Sequences are only incremented in db
// when every signature is valid and db is written by the caller.
func Authorize(ctx quorum.Context, db quorum.KVStore, sigs []*StdSignature, signBytes []byte, domain string) (quorum.Context, error) {
	signers, err := VerifySignatures(db, sigs, signBytes, domain)
	if err != nil {
		return ctx, err
	}
	return withSigners(ctx, signers), nil
}
