package store

import (
	"sync"
)

// SyncStore serializes all access to a store shared by goroutines, for
// example several wallets kept in one MemStore. Iterators read their
// whole range up front so no lock is held between calls.
type SyncStore struct {
	mu   *sync.Mutex
	back CacheableKVStore
}

var _ CacheableKVStore = SyncStore{}

// NewSyncStore wraps back.
func NewSyncStore(back CacheableKVStore) SyncStore {
	return SyncStore{mu: &sync.Mutex{}, back: back}
}

func (s SyncStore) Get(key []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.back.Get(key)
}

func (s SyncStore) Has(key []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.back.Has(key)
}

func (s SyncStore) Set(key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.back.Set(key, value)
}

func (s SyncStore) Delete(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.back.Delete(key)
}

func (s SyncStore) Iterator(start, end []byte) (Iterator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, err := s.back.Iterator(start, end)
	if err != nil {
		return nil, err
	}
	models, err := ReadModels(it)
	if err != nil {
		return nil, err
	}
	return NewSliceIterator(models), nil
}

func (s SyncStore) ReverseIterator(start, end []byte) (Iterator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, err := s.back.ReverseIterator(start, end)
	if err != nil {
		return nil, err
	}
	models, err := ReadModels(it)
	if err != nil {
		return nil, err
	}
	return NewSliceIterator(models), nil
}

// NewBatch returns a batch applied to the backing store in one locked
// step.
func (s SyncStore) NewBatch() Batch {
	return &syncBatch{store: s}
}

// CacheWrap returns a cache whose writes are flushed through a locked
// batch.
func (s SyncStore) CacheWrap() KVCacheWrap {
	return NewBTreeCacheWrap(s, s.NewBatch(), nil)
}

type syncBatch struct {
	store SyncStore
	ops   []Op
}

func (b *syncBatch) Set(key, value []byte) error {
	b.ops = append(b.ops, SetOp(key, value))
	return nil
}

func (b *syncBatch) Delete(key []byte) error {
	b.ops = append(b.ops, DelOp(key))
	return nil
}

func (b *syncBatch) Write() error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	out := b.store.back.NewBatch()
	for _, op := range b.ops {
		if err := op.Apply(out); err != nil {
			return err
		}
	}
	b.ops = nil
	return out.Write()
}
