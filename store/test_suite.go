package store

import (
	"bytes"
	"crypto/rand"
	"sort"
	"testing"

	"github.com/iov-one/quorum/quorumtest/assert"
)

// TestSuite runs the same set of checks against any CacheableKVStore.
// Each implementation only provides a constructor, the rest of the
// logic is generic to the KVStore interface.
type TestSuite struct {
	makeBase TestStoreConstructor
}

// TestStoreConstructor returns a fresh store and a function that
// releases it.
type TestStoreConstructor func() (base CacheableKVStore, cleanup func())

func NewTestSuite(constructor TestStoreConstructor) *TestSuite {
	return &TestSuite{
		makeBase: constructor,
	}
}

// GetSet checks reads and writes through a cache wrap.
func (s *TestSuite) GetSet(t *testing.T) {
	base, cleanup := s.makeBase()
	defer cleanup()

	k, v := []byte("french"), []byte("fry")
	s.AssertGetHas(t, base, k, nil, false)
	assert.Nil(t, base.Set(k, v))
	s.AssertGetHas(t, base, k, v, true)

	// a cache on top returns base data
	cache := base.CacheWrap()
	s.AssertGetHas(t, cache, k, v, true)

	// writing more data is only visible in the cache
	k2, v2 := []byte("LA"), []byte("Dodgers")
	s.AssertGetHas(t, cache, k2, nil, false)
	assert.Nil(t, cache.Set(k2, v2))
	s.AssertGetHas(t, cache, k2, v2, true)
	s.AssertGetHas(t, base, k2, nil, false)

	assert.Nil(t, cache.Write())
	s.AssertGetHas(t, base, k, v, true)
	s.AssertGetHas(t, base, k2, v2, true)

	// discarded data never reaches the base
	k3, v3 := []byte("Bayern"), []byte("Munich")
	c2 := base.CacheWrap()
	s.AssertGetHas(t, c2, k, v, true)
	assert.Nil(t, c2.Set(k3, v3))
	c2.Discard()
	s.AssertGetHas(t, base, k3, nil, false)

	c3 := base.CacheWrap()
	assert.Nil(t, c3.Delete(k))
	assert.Nil(t, c3.Write())
	s.AssertGetHas(t, base, k, nil, false)
	s.AssertGetHas(t, base, k2, v2, true)
}

// CacheConflicts checks a cache wrap that overwrites and deletes values
// of its parent.
func (s *TestSuite) CacheConflicts(t *testing.T) {
	ks := randKeys(10, 16)
	vs := randKeys(20, 40)

	cases := map[string]struct {
		parentOps     []Op
		childOps      []Op
		parentQueries []Model // Key is what we query, Value is what we expect
		childQueries  []Model
	}{
		"overwrite one, delete another, add a third": {
			parentOps:     []Op{SetOp(ks[1], vs[1]), SetOp(ks[2], vs[2])},
			childOps:      []Op{SetOp(ks[1], vs[11]), SetOp(ks[3], vs[7]), DelOp(ks[2])},
			parentQueries: []Model{Pair(ks[1], vs[1]), Pair(ks[2], vs[2]), Pair(ks[3], nil)},
			childQueries:  []Model{Pair(ks[1], vs[11]), Pair(ks[2], nil), Pair(ks[3], vs[7])},
		},
		"delete then set again": {
			parentOps:     []Op{SetOp(ks[4], vs[4])},
			childOps:      []Op{DelOp(ks[4]), SetOp(ks[4], vs[5])},
			parentQueries: []Model{Pair(ks[4], vs[4])},
			childQueries:  []Model{Pair(ks[4], vs[5])},
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			parent, cleanup := s.makeBase()
			defer cleanup()

			for _, op := range tc.parentOps {
				assert.Nil(t, op.Apply(parent))
			}

			child := parent.CacheWrap()
			for _, op := range tc.childOps {
				assert.Nil(t, op.Apply(child))
			}

			for _, q := range tc.parentQueries {
				s.AssertGetHas(t, parent, q.Key, q.Value, q.Value != nil)
			}
			for _, q := range tc.childQueries {
				s.AssertGetHas(t, child, q.Key, q.Value, q.Value != nil)
			}

			assert.Nil(t, child.Write())
			for _, q := range tc.childQueries {
				s.AssertGetHas(t, parent, q.Key, q.Value, q.Value != nil)
			}
		})
	}
}

// FuzzIterator compares forward and reverse range scans over random
// data with a sorted copy of the same data. Deletes of absent keys are
// mixed in and must not show up.
func (s *TestSuite) FuzzIterator(t *testing.T) {
	const size, deletes = 50, 20

	childSet := randModels(size, 8, 40)
	childOps := append(makeSetOps(childSet...), makeDelOps(randModels(deletes, 8, 40)...)...)
	parentSet := randModels(size, 8, 40)
	parentOps := append(makeSetOps(parentSet...), makeDelOps(randModels(deletes, 8, 40)...)...)

	bounds := [][2]int{{-1, -1}, {10, -1}, {-1, size - 8}, {17, 28}, {34, -1}, {-1, 19}, {6, 26}}
	child := sortModels(childSet)
	merged := sortModels(append(childSet, parentSet...))

	cases := map[string]iterCase{
		"child over an empty parent": {
			child:   childOps,
			queries: spans(child, bounds...),
		},
		"child merged with parent": {
			pre:     parentOps,
			child:   childOps,
			queries: spans(merged, bounds...),
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			base, cleanup := s.makeBase()
			defer cleanup()
			tc.verify(t, base)
		})
	}
}

// IteratorWithConflicts checks that cached writes shadow the parent and
// cached deletes hide it.
func (s *TestSuite) IteratorWithConflicts(t *testing.T) {
	ms := randModels(6, 20, 100)
	a, a2, b, b2, c, d := ms[0], ms[1], ms[2], ms[3], ms[4], ms[5]
	a2.Key, b2.Key = a.Key, b.Key

	abc := sortModels([]Model{a, b, c})
	replaced := sortModels([]Model{a2, b2, c, d})

	cases := map[string]iterCase{
		"child only": {
			child:   makeSetOps(a, b, c),
			queries: spans(abc, [2]int{-1, -1}, [2]int{1, 2}),
		},
		"parent only": {
			pre:     makeSetOps(a, b, c),
			queries: spans(abc, [2]int{-1, -1}, [2]int{1, 2}),
		},
		"split between parent and child": {
			pre:     makeSetOps(a, b),
			child:   makeSetOps(c),
			queries: spans(abc, [2]int{-1, -1}, [2]int{1, 2}),
		},
		"child values win": {
			pre:     makeSetOps(a, b, c),
			child:   makeSetOps(a2, b2, d),
			queries: spans(replaced, [2]int{-1, -1}, [2]int{1, 3}),
		},
		"child deletes hide parent entries": {
			pre:   makeSetOps(a, c, d),
			child: makeDelOps(a, b, d),
			queries: append(spans([]Model{c}, [2]int{-1, -1}),
				rangeQuery{end: c.Key}),
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			base, cleanup := s.makeBase()
			defer cleanup()
			tc.verify(t, base)
		})
	}
}

// spans builds a forward and a reverse query for every bound over the
// sorted models. A bound is a pair of indexes into models, -1 leaves
// that side of the range open.
func spans(models []Model, bounds ...[2]int) []rangeQuery {
	var res []rangeQuery
	for _, b := range bounds {
		var q rangeQuery
		lo, hi := 0, len(models)
		if b[0] >= 0 {
			lo, q.start = b[0], models[b[0]].Key
		}
		if b[1] >= 0 {
			hi, q.end = b[1], models[b[1]].Key
		}
		q.expected = models[lo:hi]
		rev := q
		rev.reverse, rev.expected = true, reverse(q.expected)
		res = append(res, q, rev)
	}
	return res
}

// AssertGetHas checks both Get and Has for a single key.
func (s *TestSuite) AssertGetHas(t testing.TB, kv ReadOnlyKVStore, key, val []byte, has bool) {
	t.Helper()
	got, err := kv.Get(key)
	assert.Nil(t, err)
	assert.Equal(t, val, got)
	exists, err := kv.Has(key)
	assert.Nil(t, err)
	assert.Equal(t, has, exists)
}

func randBytes(length int) []byte {
	res := make([]byte, length)
	if _, err := rand.Read(res); err != nil {
		panic(err)
	}
	return res
}

func randKeys(count, size int) [][]byte {
	res := make([][]byte, count)
	for i := 0; i < count; i++ {
		res[i] = randBytes(size)
	}
	return res
}

func randModels(count, keySize, valueSize int) []Model {
	models := make([]Model, count)
	for i := 0; i < count; i++ {
		models[i].Key = randBytes(keySize)
		models[i].Value = randBytes(valueSize)
	}
	return models
}

// iterCase applies pre to the base store, child to a cache wrap over it,
// then runs queries against the wrap.
type iterCase struct {
	pre     []Op
	child   []Op
	queries []rangeQuery
}

func (i iterCase) verify(t testing.TB, base CacheableKVStore) {
	t.Helper()
	for _, op := range i.pre {
		assert.Nil(t, op.Apply(base))
	}

	child := base.CacheWrap()
	for _, op := range i.child {
		assert.Nil(t, op.Apply(child))
	}

	for _, q := range i.queries {
		var iter Iterator
		var err error
		if q.reverse {
			iter, err = child.ReverseIterator(q.start, q.end)
		} else {
			iter, err = child.Iterator(q.start, q.end)
		}
		assert.Nil(t, err)

		got, err := ReadModels(iter)
		assert.Nil(t, err)
		if len(got) != len(q.expected) {
			t.Fatalf("want %d models, got %d", len(q.expected), len(got))
		}
		for n := range q.expected {
			if !bytes.Equal(q.expected[n].Key, got[n].Key) {
				t.Fatalf("key %d: want %X, got %X", n, q.expected[n].Key, got[n].Key)
			}
			assert.Equal(t, q.expected[n].Value, got[n].Value)
		}
	}
}

type rangeQuery struct {
	start    []byte
	end      []byte
	reverse  bool
	expected []Model
}

func reverse(models []Model) []Model {
	res := make([]Model, len(models))
	for i, m := range models {
		res[len(models)-1-i] = m
	}
	return res
}

// sortModels returns a copy of the models sorted by key
func sortModels(models []Model) []Model {
	res := make([]Model, len(models))
	copy(res, models)
	sort.Slice(res, func(i, j int) bool {
		return bytes.Compare(res[i].Key, res[j].Key) < 0
	})
	return res
}

func makeSetOps(ms ...Model) []Op {
	res := make([]Op, len(ms))
	for i, m := range ms {
		res[i] = SetOp(m.Key, m.Value)
	}
	return res
}

func makeDelOps(ms ...Model) []Op {
	res := make([]Op, len(ms))
	for i, m := range ms {
		res[i] = DelOp(m.Key)
	}
	return res
}
