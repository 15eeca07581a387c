package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefixStoreSuite(t *testing.T) {
	makeBase := func() (CacheableKVStore, func()) {
		return NewPrefixStore(MemStore(), []byte("pre:")), func() {}
	}
	suite := NewTestSuite(makeBase)
	t.Run("get set", suite.GetSet)
	t.Run("cache conflicts", suite.CacheConflicts)
	t.Run("fuzz iterator", suite.FuzzIterator)
	t.Run("iterator with conflicts", suite.IteratorWithConflicts)
}

func TestPrefixStoreIsolation(t *testing.T) {
	back := MemStore()
	alpha := NewPrefixStore(back, []byte("alpha:"))
	beta := NewPrefixStore(back, []byte("beta:"))

	require.NoError(t, alpha.Set([]byte("key"), []byte("a")))
	require.NoError(t, beta.Set([]byte("key"), []byte("b")))
	require.NoError(t, back.Set([]byte("zzz"), []byte("outside")))

	v, err := back.Get([]byte("alpha:key"))
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), v)

	it, err := alpha.Iterator(nil, nil)
	require.NoError(t, err)
	models, err := ReadModels(it)
	require.NoError(t, err)
	assert.Equal(t, []Model{Pair([]byte("key"), []byte("a"))}, models)

	it, err = beta.ReverseIterator(nil, nil)
	require.NoError(t, err)
	models, err = ReadModels(it)
	require.NoError(t, err)
	assert.Equal(t, []Model{Pair([]byte("key"), []byte("b"))}, models)
}

func TestPrefixEnd(t *testing.T) {
	cases := map[string]struct {
		prefix []byte
		want   []byte
	}{
		"simple":       {prefix: []byte("abc"), want: []byte("abd")},
		"trailing max": {prefix: []byte{1, 0xff}, want: []byte{2}},
		"all max":      {prefix: []byte{0xff, 0xff}, want: nil},
		"empty":        {prefix: nil, want: nil},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, prefixEnd(tc.prefix))
		})
	}
}
