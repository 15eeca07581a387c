package store

import (
	"bytes"

	"github.com/google/btree"
	"github.com/iov-one/quorum/errors"
)

// DefaultFreeListSize is the number of released btree nodes kept for
// reuse.
const DefaultFreeListSize = btree.DefaultFreeListSize

// BTreeCacheable gives any KVStore a btree backed CacheWrap.
type BTreeCacheable struct {
	KVStore
}

var _ CacheableKVStore = BTreeCacheable{}

func (b BTreeCacheable) CacheWrap() KVCacheWrap {
	return NewBTreeCacheWrap(b.KVStore, b.NewBatch(), nil)
}

// MemStore returns an empty in-memory store. Data lives as long as the
// returned value.
func MemStore() CacheableKVStore {
	return NewBTreeCacheWrap(EmptyKVStore{}, nopBatch{}, nil)
}

// BTreeCacheWrap keeps pending writes in a btree on top of a read only
// parent. Writes are mirrored into batch and reach the parent on Write.
type BTreeCacheWrap struct {
	bt    *btree.BTree
	free  *btree.FreeList
	back  ReadOnlyKVStore
	batch Batch
}

var _ KVCacheWrap = BTreeCacheWrap{}

// NewBTreeCacheWrap returns a cache over kv flushing into batch. free
// may be shared between nested wraps; nil allocates a new list.
func NewBTreeCacheWrap(kv ReadOnlyKVStore, batch Batch, free *btree.FreeList) BTreeCacheWrap {
	if free == nil {
		free = btree.NewFreeList(DefaultFreeListSize)
	}
	return BTreeCacheWrap{
		bt:    btree.NewWithFreeList(2, free),
		free:  free,
		back:  kv,
		batch: batch,
	}
}

// CacheWrap nests another wrap that flushes into this one.
func (b BTreeCacheWrap) CacheWrap() KVCacheWrap {
	return NewBTreeCacheWrap(b, b.NewBatch(), b.free)
}

func (b BTreeCacheWrap) NewBatch() Batch {
	return NewNonAtomicBatch(b)
}

// Write flushes the pending writes to the parent and empties the cache.
func (b BTreeCacheWrap) Write() error {
	err := b.batch.Write()
	b.Discard()
	return err
}

// Discard drops the pending writes. The nodes go back to the free list.
func (b BTreeCacheWrap) Discard() {
	for b.bt.DeleteMin() != nil {
	}
}

func (b BTreeCacheWrap) Set(key, value []byte) error {
	b.bt.ReplaceOrInsert(setItem{bkey{key}, value})
	return b.batch.Set(key, value)
}

func (b BTreeCacheWrap) Delete(key []byte) error {
	b.bt.ReplaceOrInsert(deletedItem{bkey{key}})
	return b.batch.Delete(key)
}

// lookup reports the cached state of key. cached is false when the
// parent must be asked.
func (b BTreeCacheWrap) lookup(key []byte) (value []byte, found, cached bool, err error) {
	switch t := b.bt.Get(bkey{key}).(type) {
	case nil:
		return nil, false, false, nil
	case setItem:
		return t.value, true, true, nil
	case deletedItem:
		return nil, false, true, nil
	default:
		return nil, false, true, errors.Wrapf(errors.ErrDatabase, "unknown btree item %#v", t)
	}
}

func (b BTreeCacheWrap) Get(key []byte) ([]byte, error) {
	value, _, cached, err := b.lookup(key)
	if !cached {
		return b.back.Get(key)
	}
	return value, err
}

func (b BTreeCacheWrap) Has(key []byte) (bool, error) {
	_, found, cached, err := b.lookup(key)
	if !cached {
		return b.back.Has(key)
	}
	return found, err
}

// Iterator merges the cached writes with the parent, ascending.
func (b BTreeCacheWrap) Iterator(start, end []byte) (Iterator, error) {
	parent, err := b.back.Iterator(start, end)
	if err != nil {
		return nil, err
	}
	return newItemIter(collectItems(b.bt, start, end, false), parent, false)
}

// ReverseIterator merges the cached writes with the parent, descending.
func (b BTreeCacheWrap) ReverseIterator(start, end []byte) (Iterator, error) {
	parent, err := b.back.ReverseIterator(start, end)
	if err != nil {
		return nil, err
	}
	return newItemIter(collectItems(b.bt, start, end, true), parent, true)
}

// keyer is implemented by every item stored in the btree.
type keyer interface {
	Key() []byte
}

// bkey orders btree items by key. On its own it serves as a query.
type bkey struct {
	key []byte
}

var (
	_ keyer      = bkey{}
	_ btree.Item = bkey{}
)

func (k bkey) Key() []byte {
	return k.key
}

func (k bkey) Less(item btree.Item) bool {
	return bytes.Compare(k.key, item.(keyer).Key()) < 0
}

// deletedItem hides a key of the parent store.
type deletedItem struct {
	bkey
}

type setItem struct {
	bkey
	value []byte
}
