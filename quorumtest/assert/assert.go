// Package assert provides the small set of test assertions shared by
// all packages of this module.
package assert

import (
	"reflect"
	"testing"

	"github.com/iov-one/quorum/errors"
)

// Tester is the minimal subset of testing.TB needed to run most assert commands
type Tester interface {
	Helper()
	Fatal(...interface{})
	Fatalf(string, ...interface{})
}

// Nil fails the test if given value is not nil.
func Nil(t Tester, value interface{}) {
	t.Helper()
	if !isNil(value) {
		// %+v prints the stack trace of wrapped errors.
		t.Fatalf("want a nil value, got %+v", value)
	}
}

func isNil(value interface{}) (isnil bool) {
	if value == nil {
		return true
	}
	defer func() {
		if recover() != nil {
			isnil = false
		}
	}()
	return reflect.ValueOf(value).IsNil()
}

// Equal fails the test if two values are not equal.
func Equal(t Tester, want, got interface{}) {
	t.Helper()
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("values not equal \nwant %T %v\n got %T %v", want, want, got, got)
	}
}

// Panics runs fn and fails the test if it returns without panicking.
func Panics(t Tester, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatal("panic expected")
		}
	}()
	fn()
}

// FieldError ensures that err holds exactly one error for fieldName
// matching want. Pass a nil want to require that the field is clean.
func FieldError(t testing.TB, err error, fieldName string, want *errors.Error) {
	t.Helper()

	errs := errors.FieldErrors(err, fieldName)
	if want == nil {
		if len(errs) != 0 {
			for i, e := range errs {
				t.Logf("\terror %d: %q", i+1, e)
			}
			t.Fatalf("expected no error, got %d", len(errs))
		}
		return
	}

	switch len(errs) {
	case 0:
		t.Fatal("no error found")
	case 1:
		if !want.Is(errs[0]) {
			t.Fatalf("unexpected error found: %q", errs[0])
		}
	default:
		for i, e := range errs {
			t.Logf("\terror %d: %q", i+1, e)
		}
		t.Fatalf("want one error, got %d", len(errs))
	}
}

// IsErr checks that got is of the kind described by want and fails the
// test printing both otherwise.
func IsErr(t testing.TB, want, got error) {
	t.Helper()

	if want == got {
		return
	}
	type comparator interface {
		Is(error) bool
	}
	if want, ok := want.(comparator); ok && want.Is(got) {
		return
	}
	t.Fatalf("want %q, got %+v", want, got)
}
