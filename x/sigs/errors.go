package sigs

import "github.com/iov-one/quorum/errors"

// ErrInvalidSequence is returned when a signature was made for a sequence
// that is not the current one of the signer.
var ErrInvalidSequence = errors.Register(120, "invalid sequence number")
