package store

import (
	"github.com/iov-one/quorum/errors"
)

//----------------------------------------
// Batch ops

// Op is either Set or Delete
type Op interface {
	Apply(out SetDeleter) error
}

type setOp struct {
	key   []byte
	value []byte
}

// SetOp returns an operation that sets key to value.
func SetOp(key, value []byte) Op {
	return setOp{key: key, value: value}
}

// Apply performs the stored operation on a SetDeleter
func (o setOp) Apply(out SetDeleter) error {
	return out.Set(o.key, o.value)
}

type delOp struct {
	key []byte
}

// DelOp returns an operation that removes key.
func DelOp(key []byte) Op {
	return delOp{key: key}
}

// Apply performs the stored operation on a SetDeleter
func (o delOp) Apply(out SetDeleter) error {
	return out.Delete(o.key)
}

// NonAtomicBatch just piles up ops and executes them later
// on the underlying store. Can be used when there is no better
// option (for in-memory stores).
type NonAtomicBatch struct {
	out SetDeleter
	ops []Op
}

var _ Batch = (*NonAtomicBatch)(nil)

// NewNonAtomicBatch creates an empty batch to be later writen
// to the KVStore
func NewNonAtomicBatch(out SetDeleter) *NonAtomicBatch {
	return &NonAtomicBatch{out: out}
}

// Set adds a set operation to the batch
func (b *NonAtomicBatch) Set(key, value []byte) error {
	b.ops = append(b.ops, SetOp(key, value))
	return nil
}

// Delete adds a delete operation to the batch
func (b *NonAtomicBatch) Delete(key []byte) error {
	b.ops = append(b.ops, DelOp(key))
	return nil
}

// Write writes all the ops to the underlying store and resets
func (b *NonAtomicBatch) Write() error {
	for _, op := range b.ops {
		if err := op.Apply(b.out); err != nil {
			return errors.Wrap(err, "apply batch op")
		}
	}
	b.ops = nil
	return nil
}

// nopBatch swallows all writes. Used when the cache is the
// only copy of the data.
type nopBatch struct{}

func (nopBatch) Set(key, value []byte) error { return nil }
func (nopBatch) Delete(key []byte) error     { return nil }
func (nopBatch) Write() error                { return nil }

//----------------------------------------
// Iterators

// SliceIterator wraps an Iterator over a slice of models
type SliceIterator struct {
	data []Model
	idx  int
}

var _ Iterator = (*SliceIterator)(nil)

// NewSliceIterator creates a new Iterator over this slice
func NewSliceIterator(data []Model) *SliceIterator {
	return &SliceIterator{data: data}
}

// Valid implements Iterator and returns true iff it can be read
func (s *SliceIterator) Valid() bool {
	return s.idx < len(s.data)
}

// Next moves the iterator to the next sequential key in the database, as
// defined by order of iteration.
//
// If Valid returns false, this method will panic.
func (s *SliceIterator) Next() error {
	s.assertValid()
	s.idx++
	return nil
}

// Key returns the key of the cursor.
func (s *SliceIterator) Key() []byte {
	s.assertValid()
	return s.data[s.idx].Key
}

// Value returns the value of the cursor.
func (s *SliceIterator) Value() []byte {
	s.assertValid()
	return s.data[s.idx].Value
}

// Release releases the Iterator.
func (s *SliceIterator) Release() {
	s.data = nil
}

func (s *SliceIterator) assertValid() {
	if !s.Valid() {
		panic("Passed end of slice")
	}
}

// EmptyKVStore is a basic implementation of a KVStore without any
// data. Useful as the base of a MemStore.
type EmptyKVStore struct{}

var _ KVStore = EmptyKVStore{}

// Get always returns nil
func (e EmptyKVStore) Get(key []byte) ([]byte, error) { return nil, nil }

// Has always returns false
func (e EmptyKVStore) Has(key []byte) (bool, error) { return false, nil }

// Set is a noop
func (e EmptyKVStore) Set(key, value []byte) error { return nil }

// Delete is a noop
func (e EmptyKVStore) Delete(key []byte) error { return nil }

// Iterator is always empty
func (e EmptyKVStore) Iterator(start, end []byte) (Iterator, error) {
	return NewSliceIterator(nil), nil
}

// ReverseIterator is always empty
func (e EmptyKVStore) ReverseIterator(start, end []byte) (Iterator, error) {
	return NewSliceIterator(nil), nil
}

// NewBatch returns a batch that can write to this tree later
func (e EmptyKVStore) NewBatch() Batch {
	return NewNonAtomicBatch(e)
}

// ReadModels drains the iterator into a slice and releases it.
func ReadModels(it Iterator) ([]Model, error) {
	defer it.Release()
	var res []Model
	for it.Valid() {
		res = append(res, Pair(it.Key(), it.Value()))
		if err := it.Next(); err != nil {
			return nil, err
		}
	}
	return res, nil
}
