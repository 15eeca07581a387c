package quorumtest

import (
	"context"
	"fmt"

	"github.com/iov-one/quorum"
)

// Auth is a mock implementing quorum.Authenticator interface.
//
// This structure authenticates any of referenced conditions. Signer is
// a shortcut for a single signer and is always reported first, so it is
// the main signer of the call.
type Auth struct {
	Signer  quorum.Condition
	Signers []quorum.Condition
}

var _ quorum.Authenticator = (*Auth)(nil)

func (a *Auth) GetConditions(quorum.Context) []quorum.Condition {
	if a.Signer == nil {
		return a.Signers
	}
	res := make([]quorum.Condition, 0, len(a.Signers)+1)
	res = append(res, a.Signer)
	return append(res, a.Signers...)
}

func (a *Auth) HasAddress(ctx quorum.Context, addr quorum.Address) bool {
	for _, s := range a.GetConditions(ctx) {
		if addr.Equals(s.Address()) {
			return true
		}
	}
	return false
}

type ctxAuthKey string

// CtxAuth is a mock implementing quorum.Authenticator interface.
//
// This implementation is using context to store and retrieve permissions.
type CtxAuth struct {
	// Key used to set and retrieve conditions from the context.
	Key string
}

var _ quorum.Authenticator = (*CtxAuth)(nil)

// SetConditions returns a context authenticating given conditions.
func (a *CtxAuth) SetConditions(ctx quorum.Context, permissions ...quorum.Condition) quorum.Context {
	return context.WithValue(ctx, ctxAuthKey(a.Key), permissions)
}

func (a *CtxAuth) GetConditions(ctx quorum.Context) []quorum.Condition {
	val := ctx.Value(ctxAuthKey(a.Key))
	if val == nil {
		return nil
	}
	conds, ok := val.([]quorum.Condition)
	if !ok {
		panic(fmt.Sprintf("instead of []quorum.Condition got %T", val))
	}
	return conds
}

func (a *CtxAuth) HasAddress(ctx quorum.Context, addr quorum.Address) bool {
	for _, s := range a.GetConditions(ctx) {
		if addr.Equals(s.Address()) {
			return true
		}
	}
	return false
}
