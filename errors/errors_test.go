package errors

import (
	stdlib "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

func TestCause(t *testing.T) {
	std := stdlib.New("this is a stdlib error")

	cases := map[string]struct {
		err  error
		root error
	}{
		"Errors are self-causing": {
			err:  ErrNotFound,
			root: ErrNotFound,
		},
		"Wrap reveals root cause": {
			err:  Wrap(ErrNotFound, "foo"),
			root: ErrNotFound,
		},
		"Cause works for stderr as root": {
			err:  Wrap(std, "Some helpful text"),
			root: std,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			if got := errors.Cause(tc.err); got != tc.root {
				t.Fatal("unexpected result")
			}
		})
	}
}

func TestErrorIs(t *testing.T) {
	cases := map[string]struct {
		a      *Error
		b      error
		wantIs bool
	}{
		"instance of the same error": {
			a:      ErrNotFound,
			b:      ErrNotFound,
			wantIs: true,
		},
		"two different coded errors": {
			a:      ErrNotFound,
			b:      ErrModel,
			wantIs: false,
		},
		"successful comparison to a wrapped error": {
			a:      ErrNotFound,
			b:      errors.Wrap(ErrNotFound, "gone"),
			wantIs: true,
		},
		"unsuccessful comparison to a wrapped error": {
			a:      ErrNotFound,
			b:      errors.Wrap(ErrUnauthorized, "denied"),
			wantIs: false,
		},
		"doubly wrapped error": {
			a:      ErrUnauthorized,
			b:      Wrap(Wrap(ErrUnauthorized, "inner"), "outer"),
			wantIs: true,
		},
		"nil kind matches nil error": {
			a:      nil,
			b:      nil,
			wantIs: true,
		},
		"nil kind does not match an error": {
			a:      nil,
			b:      ErrNotFound,
			wantIs: false,
		},
		"nil kind matches typed nil": {
			a:      nil,
			b:      (*wrappedError)(nil),
			wantIs: true,
		},
		"multi error is matched by its first error": {
			a:      ErrEmpty,
			b:      Append(ErrEmpty.New("a"), ErrInput.New("b")),
			wantIs: true,
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			if got := tc.a.Is(tc.b); got != tc.wantIs {
				t.Fatalf("unexpected result: %v", got)
			}
		})
	}
}

func TestRegisterDuplicatedCode(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("registering a used code must panic")
		}
	}()
	Register(ErrNotFound.Code(), "another not found")
}

func TestWrapNil(t *testing.T) {
	if err := Wrap(nil, "anything"); err != nil {
		t.Fatalf("want nil, got %+v", err)
	}
	if err := Wrapf(nil, "anything %d", 1); err != nil {
		t.Fatalf("want nil, got %+v", err)
	}
}

func TestWrappedErrorMessage(t *testing.T) {
	err := Wrap(ErrNotFound.Newf("request %d", 7), "load")
	if got, want := err.Error(), "load: request 7: not found"; got != want {
		t.Fatalf("want %q, got %q", want, got)
	}
	// Stack trace is only printed in the verbose mode.
	if verbose := fmt.Sprintf("%+v", err); !strings.Contains(verbose, "errors_test.go") {
		t.Fatalf("stack trace not found in %q", verbose)
	}
	if short := fmt.Sprintf("%v", err); short != err.Error() {
		t.Fatalf("unexpected short format: %q", short)
	}
}

func TestRecover(t *testing.T) {
	fn := func() (err error) {
		defer Recover(&err)
		panic("boom")
	}
	if err := fn(); !ErrPanic.Is(err) {
		t.Fatalf("want panic error, got %+v", err)
	}
}

func TestErrorInfo(t *testing.T) {
	cases := map[string]struct {
		err      error
		debug    bool
		wantCode uint32
		wantLog  string
	}{
		"nil error": {
			err:      nil,
			wantCode: SuccessCode,
			wantLog:  "",
		},
		"registered error": {
			err:      ErrUnauthorized.New("not a member"),
			wantCode: ErrUnauthorized.Code(),
			wantLog:  "not a member: unauthorized",
		},
		"stdlib error is redacted": {
			err:      stdlib.New("disk on fire"),
			wantCode: internalCode,
			wantLog:  internalLog,
		},
		"wrapped stdlib error is redacted": {
			err:      Wrap(stdlib.New("disk on fire"), "write"),
			wantCode: internalCode,
			wantLog:  internalLog,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			code, log := ErrorInfo(tc.err, tc.debug)
			if code != tc.wantCode {
				t.Errorf("want %d code, got %d", tc.wantCode, code)
			}
			if log != tc.wantLog {
				t.Errorf("want %q log, got %q", tc.wantLog, log)
			}
		})
	}
}

func TestRedact(t *testing.T) {
	if err := Redact(ErrPanic.New("secret"), false); err.Error() != internalLog {
		t.Fatalf("panic must be redacted, got %q", err)
	}
	if err := Redact(stdlib.New("secret"), false); err.Error() != internalLog {
		t.Fatalf("internal error must be redacted, got %q", err)
	}
	if err := Redact(stdlib.New("secret"), true); err.Error() != "secret" {
		t.Fatalf("debug mode must not redact, got %q", err)
	}
	if err := Redact(ErrNotFound.New("request"), false); !ErrNotFound.Is(err) {
		t.Fatalf("registered error must not be redacted, got %q", err)
	}
}
