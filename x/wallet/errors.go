package wallet

import "github.com/iov-one/quorum/errors"

var (
	ErrAlreadyConfirmed   = errors.Register(1100, "already confirmed")
	ErrNotConfirmed       = errors.Register(1101, "not confirmed")
	ErrInvalidThreshold   = errors.Register(1102, "invalid threshold")
	ErrInvariantViolation = errors.Register(1103, "membership invariant violation")
	ErrForbidden          = errors.Register(1104, "forbidden")
	ErrAlreadyInitialized = errors.Register(1105, "already initialized")
	ErrNotInitialized     = errors.Register(1106, "not initialized")
)
