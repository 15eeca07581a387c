package wallet

import (
	"github.com/iov-one/quorum"
)

// Genesis is the initial state of a wallet as found in the genesis file
// under the "wallet" key.
type Genesis struct {
	Members   []quorum.Address `json:"members"`
	Threshold uint32           `json:"threshold"`
}

// Initializer fulfils the Initializer interface to load data from
// the genesis file
type Initializer struct{}

var _ quorum.Initializer = (*Initializer)(nil)

// FromGenesis will parse initial wallet state from genesis and save it
// to the database. A genesis without the "wallet" key is a no-op.
func (*Initializer) FromGenesis(ctx quorum.Context, opts quorum.Options, db quorum.KVStore) error {
	if _, ok := opts["wallet"]; !ok {
		return nil
	}
	var g Genesis
	if err := opts.ReadOptions("wallet", &g); err != nil {
		return err
	}
	if err := InitWallet(db, g.Members, g.Threshold); err != nil {
		return err
	}
	quorum.GetLogger(ctx).Info("Wallet initialized from genesis", "members", len(g.Members), "threshold", g.Threshold)
	return nil
}
