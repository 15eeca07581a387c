package factory

import (
	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/errors"
	"github.com/iov-one/quorum/store"
	"github.com/iov-one/quorum/x/utils"
)

// GenesisWallet is a wallet created at startup.
type GenesisWallet struct {
	Name      string           `json:"name"`
	Members   []quorum.Address `json:"members"`
	Threshold uint32           `json:"threshold"`
}

// Initializer creates the wallets listed in the genesis file under the
// "factory" key:
//
//	{"factory": {"wallets": [{"name": "ops", "members": [...], "threshold": 2}]}}
//
// Wallets that already exist are left untouched, so a genesis file can
// be loaded on every start.
type Initializer struct{}

var _ quorum.Initializer = (*Initializer)(nil)

func (*Initializer) FromGenesis(ctx quorum.Context, opts quorum.Options, db quorum.KVStore) error {
	var conf struct {
		Wallets []GenesisWallet `json:"wallets"`
	}
	if err := opts.ReadOptions("factory", &conf); err != nil {
		return err
	}

	f, err := New(store.BTreeCacheable{KVStore: db}, nil, nil, 0)
	if err != nil {
		return err
	}
	logger := quorum.GetLogger(ctx)
	for i, w := range conf.Wallets {
		switch ok, err := f.Has(w.Name); {
		case err != nil:
			return err
		case ok:
			logger.Debug("Genesis wallet exists", "wallet", w.Name)
			continue
		}
		err := utils.Savepoint(f.db, func(db quorum.CacheableKVStore) error {
			_, err := f.create(db, w.Name, nil, w.Members, w.Threshold)
			return err
		})
		if err != nil {
			return errors.Wrapf(err, "genesis wallet %d", i)
		}
		logger.Info("Wallet created from genesis", "wallet", w.Name, "members", len(w.Members), "threshold", w.Threshold)
	}
	return nil
}
