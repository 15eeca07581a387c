package utils

import (
	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/errors"
)

// Recovery is a handler decorator that turns panics into ErrPanic
// errors, so we can log them and keep serving.
type Recovery struct {
	next quorum.Handler
}

var _ quorum.Handler = Recovery{}

// NewRecovery wraps next with panic recovery.
func NewRecovery(next quorum.Handler) Recovery {
	return Recovery{next: next}
}

// Deliver turns panics into normal errors
func (r Recovery) Deliver(ctx quorum.Context, msg quorum.Msg) (_ *quorum.Result, err error) {
	defer errors.Recover(&err)
	return r.next.Deliver(ctx, msg)
}
