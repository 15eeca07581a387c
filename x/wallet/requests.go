package wallet

import (
	"encoding/binary"
	"math"

	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/errors"
	"github.com/iov-one/quorum/orm"
)

// RequestStore keeps pending requests by id. Ids are drawn from a nonce
// that only grows, so an id is never used twice.
type RequestStore struct {
	bucket orm.Bucket
	nonce  orm.Sequence
}

// NewRequestStore returns a store using the "requests" bucket.
func NewRequestStore() RequestStore {
	return RequestStore{
		bucket: orm.NewBucket("requests", ModuleCdc),
		nonce:  orm.NewSequence("requests", "nonce"),
	}
}

func requestKey(id uint32) []byte {
	key := make([]byte, 4)
	binary.BigEndian.PutUint32(key, id)
	return key
}

// NextID returns the current nonce and increments it.
func (s RequestStore) NextID(db quorum.KVStore) (uint32, error) {
	latest, err := s.nonce.Latest(db)
	if err != nil {
		return 0, err
	}
	if latest > math.MaxUint32 {
		return 0, errors.Wrap(errors.ErrOverflow, "request nonce exhausted")
	}
	if _, err := s.nonce.NextInt(db); err != nil {
		return 0, err
	}
	return uint32(latest), nil
}

// Nonce returns the id the next request will get.
func (s RequestStore) Nonce(db quorum.ReadOnlyKVStore) (uint32, error) {
	latest, err := s.nonce.Latest(db)
	if err != nil {
		return 0, err
	}
	if latest > math.MaxUint32 {
		return 0, errors.Wrap(errors.ErrOverflow, "request nonce exhausted")
	}
	return uint32(latest), nil
}

// Insert stores a request under id.
func (s RequestStore) Insert(db quorum.KVStore, id uint32, r *Request) error {
	return s.bucket.Put(db, requestKey(id), r)
}

// Get returns the request stored under id or ErrNotFound.
func (s RequestStore) Get(db quorum.ReadOnlyKVStore, id uint32) (*Request, error) {
	var r Request
	if err := s.bucket.One(db, requestKey(id), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Has returns true if a request is stored under id.
func (s RequestStore) Has(db quorum.ReadOnlyKVStore, id uint32) (bool, error) {
	return s.bucket.Has(db, requestKey(id))
}

// Remove deletes the request stored under id.
func (s RequestStore) Remove(db quorum.KVStore, id uint32) error {
	return s.bucket.Delete(db, requestKey(id))
}

// RequestEntry is a request together with its id.
type RequestEntry struct {
	ID      uint32
	Request *Request
}

// List returns all stored requests. They are ordered by id, but callers
// must not depend on it.
func (s RequestStore) List(db quorum.ReadOnlyKVStore) ([]RequestEntry, error) {
	var res []RequestEntry
	err := s.bucket.ForEach(db, func(key, raw []byte) error {
		if len(key) != 4 {
			return errors.Wrapf(errors.ErrDatabase, "invalid request key %X", key)
		}
		var r Request
		if err := s.bucket.Decode(raw, &r); err != nil {
			return err
		}
		res = append(res, RequestEntry{ID: binary.BigEndian.Uint32(key), Request: &r})
		return nil
	})
	return res, err
}

// Count returns the number of stored requests.
func (s RequestStore) Count(db quorum.ReadOnlyKVStore) (uint32, error) {
	n, err := s.bucket.Count(db)
	return uint32(n), err
}
