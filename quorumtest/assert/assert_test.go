package assert

import (
	"fmt"
	"testing"

	"github.com/iov-one/quorum/errors"
)

type recorder struct {
	failed bool
}

func (r *recorder) Helper()                       {}
func (r *recorder) Fatal(...interface{})          { r.failed = true }
func (r *recorder) Fatalf(string, ...interface{}) { r.failed = true }

func TestNil(t *testing.T) {
	var typedNil *int
	cases := map[string]struct {
		value    interface{}
		wantFail bool
	}{
		"nil":       {value: nil},
		"typed nil": {value: typedNil},
		"error":     {value: fmt.Errorf("boom"), wantFail: true},
		"int":       {value: 0, wantFail: true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var r recorder
			Nil(&r, tc.value)
			if r.failed != tc.wantFail {
				t.Fatalf("want fail %v, got %v", tc.wantFail, r.failed)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	var r recorder
	Equal(&r, []byte("a"), []byte("a"))
	if r.failed {
		t.Fatal("equal slices reported as different")
	}
	Equal(&r, 1, int64(1))
	if !r.failed {
		t.Fatal("different types reported as equal")
	}
}

func TestPanics(t *testing.T) {
	var r recorder
	Panics(&r, func() { panic("boom") })
	if r.failed {
		t.Fatal("panic not detected")
	}
	Panics(&r, func() {})
	if !r.failed {
		t.Fatal("missing panic not reported")
	}
}

func TestIsErr(t *testing.T) {
	IsErr(t, errors.ErrNotFound, errors.Wrap(errors.ErrNotFound, "no such thing"))
	IsErr(t, nil, nil)
}
