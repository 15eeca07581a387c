package utils

import (
	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/errors"
)

// Savepoint isolates all writes made by fn in a cache wrap of db. The
// wrap is written when fn succeeds and discarded when it fails, so a
// failing fn leaves db untouched. The store passed to fn can itself be
// used for nested savepoints.
func Savepoint(db quorum.CacheableKVStore, fn func(db quorum.CacheableKVStore) error) error {
	cache := db.CacheWrap()
	if err := fn(cache); err != nil {
		cache.Discard()
		return err
	}
	if err := cache.Write(); err != nil {
		return errors.Wrap(err, "writing savepoint")
	}
	return nil
}
