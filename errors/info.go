package errors

import (
	"errors"
	"fmt"
)

const (
	// SuccessCode is used when the processing was successful and no
	// error is returned.
	SuccessCode = 0

	// All unclassified errors that do not provide a code are clubbed
	// under an internal error code and a generic message instead of
	// detailed error string.
	internalCode uint32 = 1
	internalLog         = "internal error"
)

// ErrorInfo returns the error information as consumed by a client. Any error
// that does not provide Code information is categorized as error with code 1.
// When not running in a debug mode all messages of errors that do not
// provide Code information are replaced with generic "internal error".
func ErrorInfo(err error, debug bool) (uint32, string) {
	if isNilErr(err) {
		return SuccessCode, ""
	}

	// Only non-internal errors information can be exposed. Any error that
	// does not explicitly expose its state by providing a code must be
	// silenced.
	if code := errCode(err); code != internalCode {
		if debug {
			return code, fmt.Sprintf("%+v", err)
		}
		return code, err.Error()
	}

	if debug {
		return internalCode, fmt.Sprintf("%+v", err)
	}
	return internalCode, internalLog
}

// Code returns the code of the root error that given error is wrapping.
func Code(err error) uint32 {
	return errCode(err)
}

type coder interface {
	Code() uint32
}

// errCode test if given error contains a code and returns the value of it if
// available. This function is testing for the causer interface as well and
// unwraps the error.
func errCode(err error) uint32 {
	if isNilErr(err) {
		return SuccessCode
	}

	for {
		if c, ok := err.(coder); ok {
			return c.Code()
		}
		if c, ok := err.(causer); ok {
			err = c.Cause()
		} else {
			return internalCode
		}
	}
}

// Redact replaces all errors that were not created by this package with a
// generic internal error instance. This function is supposed to hide
// implementation details errors and leave only those that are part of the
// taxonomy.
//
// This is a no-operation function when running in debug mode.
func Redact(err error, debug bool) error {
	if debug {
		return err
	}
	if ErrPanic.Is(err) {
		return errors.New(internalLog)
	}
	if errCode(err) == internalCode {
		return errors.New(internalLog)
	}
	return err
}
