package orm

import (
	"testing"

	"github.com/iov-one/quorum/errors"
	"github.com/iov-one/quorum/quorumtest/assert"
	"github.com/iov-one/quorum/store"
	amino "github.com/tendermint/go-amino"
)

type counter struct {
	Name  string
	Count uint32
}

func (c *counter) Validate() error {
	if c.Name == "" {
		return errors.Field("Name", errors.ErrEmpty, "required")
	}
	return nil
}

func TestBucketPutOne(t *testing.T) {
	db := store.MemStore()
	b := NewBucket("counters", amino.NewCodec())

	assert.Nil(t, b.Put(db, []byte("a"), &counter{Name: "a", Count: 7}))

	var got counter
	assert.Nil(t, b.One(db, []byte("a"), &got))
	assert.Equal(t, counter{Name: "a", Count: 7}, got)

	ok, err := b.Has(db, []byte("a"))
	assert.Nil(t, err)
	assert.Equal(t, true, ok)

	err = b.One(db, []byte("missing"), &got)
	assert.IsErr(t, errors.ErrNotFound, err)

	// the raw key is prefixed with the bucket name
	raw, err := db.Get([]byte("counters:a"))
	assert.Nil(t, err)
	if raw == nil {
		t.Fatal("value not stored under the prefixed key")
	}
}

func TestBucketPutValidates(t *testing.T) {
	db := store.MemStore()
	b := NewBucket("counters", amino.NewCodec())

	err := b.Put(db, []byte("a"), &counter{})
	assert.FieldError(t, err, "Name", errors.ErrEmpty)

	ok, err := b.Has(db, []byte("a"))
	assert.Nil(t, err)
	assert.Equal(t, false, ok)
}

func TestBucketDelete(t *testing.T) {
	db := store.MemStore()
	b := NewBucket("counters", amino.NewCodec())

	assert.IsErr(t, errors.ErrNotFound, b.Delete(db, []byte("a")))
	assert.Nil(t, b.Put(db, []byte("a"), &counter{Name: "a"}))
	assert.Nil(t, b.Delete(db, []byte("a")))
	ok, err := b.Has(db, []byte("a"))
	assert.Nil(t, err)
	assert.Equal(t, false, ok)
}

func TestBucketForEach(t *testing.T) {
	db := store.MemStore()
	b := NewBucket("counters", amino.NewCodec())
	other := NewBucket("others", amino.NewCodec())

	for _, name := range []string{"c", "a", "b"} {
		assert.Nil(t, b.Put(db, []byte(name), &counter{Name: name}))
	}
	assert.Nil(t, other.Put(db, []byte("x"), &counter{Name: "x"}))

	var keys []string
	err := b.ForEach(db, func(key, raw []byte) error {
		var c counter
		if err := b.Decode(raw, &c); err != nil {
			return err
		}
		assert.Equal(t, string(key), c.Name)
		keys = append(keys, string(key))
		return nil
	})
	assert.Nil(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, keys)

	n, err := b.Count(db)
	assert.Nil(t, err)
	assert.Equal(t, 3, n)
}

func TestBucketName(t *testing.T) {
	assert.Panics(t, func() { NewBucket("Invalid!", amino.NewCodec()) })
	assert.Equal(t, "counters", NewBucket("counters", amino.NewCodec()).Name())
}

type tags struct {
	Values []string
}

func (*tags) Validate() error { return nil }

func TestBucketZeroValueModel(t *testing.T) {
	db := store.MemStore()
	b := NewBucket("tags", amino.NewCodec())

	assert.Nil(t, b.Put(db, []byte("a"), &tags{}))
	ok, err := b.Has(db, []byte("a"))
	assert.Nil(t, err)
	assert.Equal(t, true, ok)

	var got tags
	assert.Nil(t, b.One(db, []byte("a"), &got))
	assert.Equal(t, 0, len(got.Values))
}
