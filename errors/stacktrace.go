package errors

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

type stackTracer interface {
	error
	StackTrace() errors.StackTrace
}

// stackTrace returns the first found stack trace frame carried by given error
// or any wrapped error. It returns nil if no stack trace is found.
func stackTrace(err error) errors.StackTrace {
	for {
		if st, ok := err.(stackTracer); ok {
			return st.StackTrace()
		}
		if c, ok := err.(causer); ok {
			err = c.Cause()
		} else {
			return nil
		}
	}
}

func writeFormatted(s fmt.State, verb rune, err error) {
	switch verb {
	case 'v':
		_, _ = io.WriteString(s, err.Error())
		if !s.Flag('+') {
			return
		}
		if st := stackTrace(err); st != nil {
			fmt.Fprintf(s, "%+v", st)
		}
	case 's':
		_, _ = io.WriteString(s, err.Error())
	case 'q':
		fmt.Fprintf(s, "%q", err.Error())
	}
}
