package store

import (
	"bytes"
)

// PrefixStore isolates all keys under a fixed prefix on a shared
// backing store. Keys passed in and returned are relative to the prefix.
type PrefixStore struct {
	prefix []byte
	back   CacheableKVStore
}

var _ CacheableKVStore = PrefixStore{}

// NewPrefixStore wraps back so that every key is namespaced by prefix.
func NewPrefixStore(back CacheableKVStore, prefix []byte) PrefixStore {
	return PrefixStore{
		prefix: append([]byte(nil), prefix...),
		back:   back,
	}
}

func (p PrefixStore) key(key []byte) []byte {
	res := make([]byte, 0, len(p.prefix)+len(key))
	res = append(res, p.prefix...)
	return append(res, key...)
}

// bounds converts a relative range into an absolute one. A nil end
// becomes the end of the prefix space.
func (p PrefixStore) bounds(start, end []byte) ([]byte, []byte) {
	s := p.key(start)
	if end == nil {
		return s, prefixEnd(p.prefix)
	}
	return s, p.key(end)
}

func (p PrefixStore) Get(key []byte) ([]byte, error) {
	return p.back.Get(p.key(key))
}

func (p PrefixStore) Has(key []byte) (bool, error) {
	return p.back.Has(p.key(key))
}

func (p PrefixStore) Set(key, value []byte) error {
	return p.back.Set(p.key(key), value)
}

func (p PrefixStore) Delete(key []byte) error {
	return p.back.Delete(p.key(key))
}

func (p PrefixStore) Iterator(start, end []byte) (Iterator, error) {
	s, e := p.bounds(start, end)
	it, err := p.back.Iterator(s, e)
	if err != nil {
		return nil, err
	}
	return &prefixIterator{prefix: p.prefix, Iterator: it}, nil
}

func (p PrefixStore) ReverseIterator(start, end []byte) (Iterator, error) {
	s, e := p.bounds(start, end)
	it, err := p.back.ReverseIterator(s, e)
	if err != nil {
		return nil, err
	}
	return &prefixIterator{prefix: p.prefix, Iterator: it}, nil
}

// NewBatch wraps a batch of the backing store, so the atomicity
// guarantees of the backing store are kept.
func (p PrefixStore) NewBatch() Batch {
	return prefixBatch{prefix: p, Batch: p.back.NewBatch()}
}

// CacheWrap places a btree cache over the prefixed view.
func (p PrefixStore) CacheWrap() KVCacheWrap {
	return NewBTreeCacheWrap(p, p.NewBatch(), nil)
}

type prefixBatch struct {
	prefix PrefixStore
	Batch
}

func (b prefixBatch) Set(key, value []byte) error {
	return b.Batch.Set(b.prefix.key(key), value)
}

func (b prefixBatch) Delete(key []byte) error {
	return b.Batch.Delete(b.prefix.key(key))
}

type prefixIterator struct {
	prefix []byte
	Iterator
}

func (i *prefixIterator) Key() []byte {
	return bytes.TrimPrefix(i.Iterator.Key(), i.prefix)
}

// prefixEnd returns the first key that does not start with prefix,
// or nil if there is no such key.
func prefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for len(end) > 0 {
		last := len(end) - 1
		if end[last] != 0xff {
			end[last]++
			return end
		}
		end = end[:last]
	}
	return nil
}
