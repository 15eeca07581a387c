package errors

import (
	"fmt"
	"strings"
)

// Append clubs together all provided errors. Nil values are ignored.
//
// If no error is provided or all errors are nil, nil is returned. A single
// non nil error is returned as it is.
func Append(errs ...error) error {
	var res multiErr
	for _, e := range errs {
		if isNilErr(e) {
			continue
		}
		if m, ok := e.(multiErr); ok {
			res = append(res, m...)
			continue
		}
		res = append(res, e)
	}

	switch len(res) {
	case 0:
		return nil
	case 1:
		return res[0]
	default:
		return res
	}
}

type multiErr []error

func (m multiErr) Error() string {
	points := make([]string, len(m))
	for i, err := range m {
		points[i] = fmt.Sprintf("* %s", err)
	}
	return fmt.Sprintf("%d errors occurred:\n\t%s\n",
		len(m), strings.Join(points, "\n\t"))
}

// Unpack returns all grouped errors.
func (m multiErr) Unpack() []error {
	return m
}

// Cause returns the first error, consistent with a fail fast approach. This
// allows to test a multi error using the Is method of a root error.
func (m multiErr) Cause() error {
	return m[0]
}

// Code returns the code of the first error.
func (m multiErr) Code() uint32 {
	return errCode(m[0])
}

// unpacker is implemented by errors that group multiple errors.
type unpacker interface {
	Unpack() []error
}

var (
	_ unpacker = multiErr(nil)
	_ causer   = multiErr(nil)
	_ coder    = multiErr(nil)
)
