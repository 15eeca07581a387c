/*
Package orm provides an easy to use db wrapper

Break state space into prefixed sections called Buckets.
Each bucket contains only one type of object, serialized with
go-amino. Sequences provide strictly increasing keys for them.
*/
package orm

import (
	"fmt"
	"regexp"

	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/errors"
	amino "github.com/tendermint/go-amino"
)

var (
	isBucketName = regexp.MustCompile(`^[a-z_]{3,10}$`).MatchString
)

// Model is an object that can be stored in a bucket.
type Model interface {
	Validate() error
}

// Bucket is a prefixed subspace of the DB. All values stored in a
// bucket are of the same type.
//
// This is a generic building block that should generally
// be embedded in a type-safe wrapper.
type Bucket struct {
	name   string
	prefix []byte
	cdc    *amino.Codec
}

// NewBucket creates a bucket to store data. cdc must know about all
// interface types used by the stored models.
func NewBucket(name string, cdc *amino.Codec) Bucket {
	if !isBucketName(name) {
		panic(fmt.Sprintf("Illegal bucket: %s", name))
	}
	return Bucket{
		name:   name,
		prefix: append([]byte(name), ':'),
		cdc:    cdc,
	}
}

// Name returns the name of the bucket.
func (b Bucket) Name() string {
	return b.name
}

// DBKey is the full key we store in the db, including prefix.
// We copy into a new array rather than use append, as we don't
// want consecutive calls to overwrite the same byte array.
func (b Bucket) DBKey(key []byte) []byte {
	l := len(b.prefix)
	out := make([]byte, l+len(key))
	copy(out, b.prefix)
	copy(out[l:], key)
	return out
}

// One loads the value stored under key into dest. It returns
// ErrNotFound if there is no such entry.
func (b Bucket) One(db quorum.ReadOnlyKVStore, key []byte, dest Model) error {
	raw, err := db.Get(b.DBKey(key))
	if err != nil {
		return errors.Wrap(err, "db get")
	}
	if raw == nil {
		return errors.Wrapf(errors.ErrNotFound, "%s %X", b.name, key)
	}
	return b.Decode(raw, dest)
}

// Decode unmarshals a raw value of this bucket.
func (b Bucket) Decode(raw []byte, dest Model) error {
	// amino encodes a zero value model as no bytes and refuses to
	// decode them.
	if len(raw) == 0 {
		return nil
	}
	if err := b.cdc.UnmarshalBinaryBare(raw, dest); err != nil {
		return errors.Wrapf(errors.ErrModel, "decode %s: %s", b.name, err)
	}
	return nil
}

// Has returns true if an entry is stored under key.
func (b Bucket) Has(db quorum.ReadOnlyKVStore, key []byte) (bool, error) {
	ok, err := db.Has(b.DBKey(key))
	if err != nil {
		return false, errors.Wrap(err, "db has")
	}
	return ok, nil
}

// Put validates and writes the model under key, overwriting
// any previous value.
func (b Bucket) Put(db quorum.KVStore, key []byte, m Model) error {
	if err := m.Validate(); err != nil {
		return errors.Wrap(err, "invalid model")
	}
	raw, err := b.cdc.MarshalBinaryBare(m)
	if err != nil {
		return errors.Wrapf(errors.ErrModel, "encode %s: %s", b.name, err)
	}
	// A nil value would read back as a missing entry.
	if raw == nil {
		raw = []byte{}
	}
	if err := db.Set(b.DBKey(key), raw); err != nil {
		return errors.Wrap(err, "db set")
	}
	return nil
}

// Delete removes the entry under key. It returns ErrNotFound if there
// was nothing to delete.
func (b Bucket) Delete(db quorum.KVStore, key []byte) error {
	switch ok, err := b.Has(db, key); {
	case err != nil:
		return err
	case !ok:
		return errors.Wrapf(errors.ErrNotFound, "%s %X", b.name, key)
	}
	if err := db.Delete(b.DBKey(key)); err != nil {
		return errors.Wrap(err, "db delete")
	}
	return nil
}

// ForEach calls fn for every entry of the bucket in ascending key
// order. The key passed to fn has the bucket prefix removed. Returning
// an error from fn stops the iteration.
func (b Bucket) ForEach(db quorum.ReadOnlyKVStore, fn func(key, raw []byte) error) error {
	it, err := db.Iterator(b.prefix, prefixEnd(b.prefix))
	if err != nil {
		return errors.Wrap(err, "db iterator")
	}
	defer it.Release()

	for it.Valid() {
		if err := fn(it.Key()[len(b.prefix):], it.Value()); err != nil {
			return err
		}
		if err := it.Next(); err != nil {
			return errors.Wrap(err, "db iterator next")
		}
	}
	return nil
}

// Count returns the number of entries stored in the bucket.
func (b Bucket) Count(db quorum.ReadOnlyKVStore) (int, error) {
	var n int
	err := b.ForEach(db, func([]byte, []byte) error {
		n++
		return nil
	})
	return n, err
}

// prefixEnd returns the smallest key greater than every key with
// the given prefix. Bucket prefixes always end with ':' so the last
// byte can be incremented.
func prefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	end[len(end)-1]++
	return end
}
