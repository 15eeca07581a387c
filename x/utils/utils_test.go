package utils

import (
	"context"
	"testing"

	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/errors"
	"github.com/iov-one/quorum/quorumtest"
	"github.com/iov-one/quorum/quorumtest/assert"
	"github.com/iov-one/quorum/store"
)

func TestSavepoint(t *testing.T) {
	cases := map[string]struct {
		fnErr   error
		wantSet bool
	}{
		"success writes": {wantSet: true},
		"failure rolls back": {
			fnErr: errors.ErrInput.New("bad"),
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			db := store.MemStore()
			err := Savepoint(db, func(db quorum.CacheableKVStore) error {
				assert.Nil(t, db.Set([]byte("key"), []byte("value")))
				return tc.fnErr
			})
			assert.IsErr(t, tc.fnErr, err)
			has, err := db.Has([]byte("key"))
			assert.Nil(t, err)
			assert.Equal(t, tc.wantSet, has)
		})
	}
}

func TestNestedSavepoint(t *testing.T) {
	db := store.MemStore()
	err := Savepoint(db, func(outer quorum.CacheableKVStore) error {
		assert.Nil(t, outer.Set([]byte("outer"), []byte("1")))
		inner := Savepoint(outer, func(inner quorum.CacheableKVStore) error {
			assert.Nil(t, inner.Set([]byte("inner"), []byte("1")))
			return errors.ErrState.New("rejected")
		})
		assert.IsErr(t, errors.ErrState, inner)
		return nil
	})
	assert.Nil(t, err)

	has, err := db.Has([]byte("outer"))
	assert.Nil(t, err)
	assert.Equal(t, true, has)
	has, err = db.Has([]byte("inner"))
	assert.Nil(t, err)
	assert.Equal(t, false, has)
}

type panicHandler struct{}

func (panicHandler) Deliver(quorum.Context, quorum.Msg) (*quorum.Result, error) {
	panic("boom")
}

type okHandler struct{}

func (okHandler) Deliver(quorum.Context, quorum.Msg) (*quorum.Result, error) {
	return &quorum.Result{Log: "done"}, nil
}

type testMsg struct{}

func (testMsg) Path() string    { return "test/msg" }
func (testMsg) Validate() error { return nil }

func TestRecovery(t *testing.T) {
	_, err := NewRecovery(panicHandler{}).Deliver(context.Background(), testMsg{})
	assert.IsErr(t, errors.ErrPanic, err)
}

func TestLogging(t *testing.T) {
	logger := quorumtest.NewLogger()
	ctx := quorum.WithLogger(context.Background(), logger)

	res, err := NewLogging(okHandler{}).Deliver(ctx, testMsg{})
	assert.Nil(t, err)
	assert.Equal(t, "done", res.Log)

	_, err = NewLogging(NewRecovery(panicHandler{})).Deliver(ctx, testMsg{})
	assert.IsErr(t, errors.ErrPanic, err)

	entries := logger.Entries()
	assert.Equal(t, 2, len(entries))
	assert.Equal(t, "info", entries[0].Level)
	assert.Equal(t, "done", entries[0].Msg)
	assert.Equal(t, "error", entries[1].Level)
}
