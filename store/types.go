package store

import "github.com/iov-one/quorum"

// Move references for all storage types into this package
// for shorter names everywhere

type (
	ReadOnlyKVStore  = quorum.ReadOnlyKVStore
	SetDeleter       = quorum.SetDeleter
	KVStore          = quorum.KVStore
	Batch            = quorum.Batch
	Iterator         = quorum.Iterator
	CacheableKVStore = quorum.CacheableKVStore
	KVCacheWrap      = quorum.KVCacheWrap
	Model            = quorum.Model
)

// Pair constructs a model from a key-value pair.
var Pair = quorum.Pair
