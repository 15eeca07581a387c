package store

import (
	"bytes"

	"github.com/google/btree"
)

// collectItems snapshots all btree items in [start, end) in iteration
// order. Reading eagerly keeps the tree free for writes while the
// iterator is open.
func collectItems(bt *btree.BTree, start, end []byte, reverse bool) []keyer {
	var items []keyer
	add := func(i btree.Item) bool {
		items = append(items, i.(keyer))
		return true
	}
	switch {
	case start == nil && end == nil:
		bt.Ascend(add)
	case start == nil:
		bt.AscendLessThan(bkey{end}, add)
	case end == nil:
		bt.AscendGreaterOrEqual(bkey{start}, add)
	default:
		bt.AscendRange(bkey{start}, bkey{end}, add)
	}
	if reverse {
		for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
			items[i], items[j] = items[j], items[i]
		}
	}
	return items
}

// itemIter merges the cached items with the parent iterator.
// Cached items shadow parent entries with the same key and
// deleted items hide them.
type itemIter struct {
	items   []keyer
	idx     int
	parent  Iterator
	reverse bool

	key   []byte
	value []byte
	valid bool
}

var _ Iterator = (*itemIter)(nil)

func newItemIter(items []keyer, parent Iterator, reverse bool) (*itemIter, error) {
	it := &itemIter{
		items:   items,
		parent:  parent,
		reverse: reverse,
	}
	if err := it.advance(); err != nil {
		it.Release()
		return nil, err
	}
	return it, nil
}

// advance moves to the next visible entry.
func (i *itemIter) advance() error {
	for {
		hasItem := i.idx < len(i.items)
		hasParent := i.parent.Valid()

		if !hasItem && !hasParent {
			i.valid = false
			i.key, i.value = nil, nil
			return nil
		}

		if hasParent {
			takeParent := !hasItem
			if hasItem {
				cmp := bytes.Compare(i.items[i.idx].Key(), i.parent.Key())
				if i.reverse {
					cmp = -cmp
				}
				switch {
				case cmp > 0:
					takeParent = true
				case cmp == 0:
					// cached value wins, skip the parent entry
					if err := i.parent.Next(); err != nil {
						return err
					}
				}
			}
			if takeParent {
				i.key, i.value, i.valid = i.parent.Key(), i.parent.Value(), true
				return i.parent.Next()
			}
		}

		item := i.items[i.idx]
		i.idx++
		if set, ok := item.(setItem); ok {
			i.key, i.value, i.valid = set.key, set.value, true
			return nil
		}
	}
}

func (i *itemIter) Valid() bool {
	return i.valid
}

func (i *itemIter) Next() error {
	if !i.valid {
		panic("Passed end of iterator")
	}
	return i.advance()
}

func (i *itemIter) Key() []byte {
	if !i.valid {
		panic("Invalid iterator")
	}
	return i.key
}

func (i *itemIter) Value() []byte {
	if !i.valid {
		panic("Invalid iterator")
	}
	return i.value
}

func (i *itemIter) Release() {
	i.parent.Release()
	i.items = nil
	i.valid = false
}
