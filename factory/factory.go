/*
Package factory provisions named wallets over a single backing store.

Every wallet lives in its own key namespace, so the state of one wallet
is never visible to another. Anyone may create a wallet: the creator does
not need to be one of its members.
*/
package factory

import (
	"sync"

	"github.com/hashicorp/golang-lru/v2"
	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/errors"
	"github.com/iov-one/quorum/orm"
	"github.com/iov-one/quorum/store"
	"github.com/iov-one/quorum/x/utils"
	"github.com/iov-one/quorum/x/wallet"
	amino "github.com/tendermint/go-amino"
)

// DefaultCacheSize is the number of wallet records kept in memory.
const DefaultCacheSize = 1024

var cdc = amino.NewCodec()

// Record describes a provisioned wallet. It never changes after
// creation.
type Record struct {
	Name string `json:"name"`
	// Index is the creation order of the wallet, starting with 1.
	Index   uint64         `json:"index"`
	Creator quorum.Address `json:"creator,omitempty"`
}

func (r *Record) Validate() error {
	var errs error
	if !quorum.IsValidWalletID(r.Name) {
		errs = errors.Append(errs, errors.Field("Name", errors.ErrInput, "invalid wallet name %q", r.Name))
	}
	if r.Index == 0 {
		errs = errors.Append(errs, errors.Field("Index", errors.ErrEmpty, "required"))
	}
	if len(r.Creator) != 0 {
		errs = errors.AppendField(errs, "Creator", r.Creator.Validate())
	}
	return errs
}

// Factory creates wallets and hands out their engines. There is at most
// one engine per wallet, so operations on a wallet are always
// serialized. It is safe for concurrent use.
type Factory struct {
	db         quorum.CacheableKVStore
	auth       quorum.Authenticator
	dispatcher wallet.Dispatcher

	records orm.Bucket
	counter orm.Sequence
	cache   *lru.Cache[string, *Record]

	mu      sync.Mutex
	wallets map[string]*wallet.Wallet
}

// New returns a factory keeping all wallets in db. Effects of every
// wallet are handed to d with the wallet name set in the context.
func New(db quorum.CacheableKVStore, auth quorum.Authenticator, d wallet.Dispatcher, cacheSize int) (*Factory, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, *Record](cacheSize)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInput, err.Error())
	}
	return &Factory{
		db:         store.NewSyncStore(db),
		auth:       auth,
		dispatcher: d,
		records:    orm.NewBucket("wallets", cdc),
		counter:    orm.NewSequence("wallets", "count"),
		cache:      cache,
		wallets:    make(map[string]*wallet.Wallet),
	}, nil
}

// namespace returns the part of db owned by the wallet name.
func namespace(db quorum.CacheableKVStore, name string) store.PrefixStore {
	return store.NewPrefixStore(db, []byte("wallet/"+name+"/"))
}

// Create provisions a new wallet. The name must match
// quorum.IsValidWalletID and must not be taken. The main signer of ctx,
// if any, is recorded as the creator.
func (f *Factory) Create(ctx quorum.Context, name string, members []quorum.Address, threshold uint32) (*wallet.Wallet, error) {
	var creator quorum.Address
	if signer := quorum.MainSigner(ctx, f.auth); signer != nil {
		creator = signer.Address()
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var rec *Record
	err := utils.Savepoint(f.db, func(db quorum.CacheableKVStore) error {
		var err error
		rec, err = f.create(db, name, creator, members, threshold)
		return err
	})
	if err != nil {
		return nil, err
	}
	f.cache.Add(name, rec)

	w, err := f.load(name)
	if err != nil {
		return nil, err
	}
	quorum.GetLogger(ctx).Info("Wallet created", "wallet", name, "index", rec.Index, "members", len(members), "threshold", threshold)
	return w, nil
}

func (f *Factory) create(db quorum.CacheableKVStore, name string, creator quorum.Address, members []quorum.Address, threshold uint32) (*Record, error) {
	if !quorum.IsValidWalletID(name) {
		return nil, errors.Field("Name", errors.ErrInput, "invalid wallet name %q", name)
	}
	switch ok, err := f.records.Has(db, []byte(name)); {
	case err != nil:
		return nil, err
	case ok:
		return nil, errors.Wrapf(errors.ErrDuplicate, "wallet %q", name)
	}
	if err := wallet.InitWallet(namespace(db, name), members, threshold); err != nil {
		return nil, err
	}
	index, err := f.counter.NextInt(db)
	if err != nil {
		return nil, err
	}
	rec := &Record{Name: name, Index: uint64(index), Creator: creator}
	if err := f.records.Put(db, []byte(name), rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Wallet returns the engine of the wallet name or ErrNotFound.
func (f *Factory) Wallet(name string) (*wallet.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if w, ok := f.wallets[name]; ok {
		return w, nil
	}
	if _, err := f.record(name); err != nil {
		return nil, err
	}
	return f.load(name)
}

// load must be called with f.mu held.
func (f *Factory) load(name string) (*wallet.Wallet, error) {
	if w, ok := f.wallets[name]; ok {
		return w, nil
	}
	d := &namedDispatcher{name: name, next: f.dispatcher}
	w, err := wallet.LoadWallet(namespace(f.db, name), f.auth, d)
	if err != nil {
		return nil, errors.Wrapf(err, "wallet %q", name)
	}
	f.wallets[name] = w
	return w, nil
}

// Record returns the description of the wallet name or ErrNotFound.
func (f *Factory) Record(name string) (*Record, error) {
	return f.record(name)
}

func (f *Factory) record(name string) (*Record, error) {
	if rec, ok := f.cache.Get(name); ok {
		return rec, nil
	}
	var rec Record
	if err := f.records.One(f.db, []byte(name), &rec); err != nil {
		return nil, errors.Wrapf(err, "wallet %q", name)
	}
	f.cache.Add(name, &rec)
	return &rec, nil
}

// Has returns true if a wallet called name exists.
func (f *Factory) Has(name string) (bool, error) {
	if f.cache.Contains(name) {
		return true, nil
	}
	return f.records.Has(f.db, []byte(name))
}

// Count returns the number of wallets ever created.
func (f *Factory) Count() (uint64, error) {
	n, err := f.counter.Latest(f.db)
	return uint64(n), err
}

// Records returns all wallets ordered by name.
func (f *Factory) Records() ([]*Record, error) {
	var res []*Record
	err := f.records.ForEach(f.db, func(key, raw []byte) error {
		var rec Record
		if err := f.records.Decode(raw, &rec); err != nil {
			return err
		}
		res = append(res, &rec)
		return nil
	})
	return res, err
}

// namedDispatcher sets the wallet name in the context of every effect.
type namedDispatcher struct {
	name string
	next wallet.Dispatcher
}

func (d *namedDispatcher) withName(ctx quorum.Context) quorum.Context {
	if _, ok := quorum.GetWalletID(ctx); ok {
		return ctx
	}
	return quorum.WithWalletID(ctx, d.name)
}

func (d *namedDispatcher) DispatchTransfer(ctx quorum.Context, receiver quorum.Address, amount uint64) {
	d.next.DispatchTransfer(d.withName(ctx), receiver, amount)
}

func (d *namedDispatcher) DispatchCall(ctx quorum.Context, receiver quorum.Address, method, args string, deposit, gas uint64) {
	d.next.DispatchCall(d.withName(ctx), receiver, method, args, deposit, gas)
}
