package wallet

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/errors"
	"github.com/iov-one/quorum/quorumtest"
	"github.com/iov-one/quorum/quorumtest/assert"
	"github.com/iov-one/quorum/store"
	"github.com/iov-one/quorum/store/sqlite"
)

type fixture struct {
	t          *testing.T
	db         quorum.CacheableKVStore
	auth       *quorumtest.CtxAuth
	dispatcher *quorumtest.Dispatcher
	logger     *quorumtest.Logger
	wallet     *Wallet
	members    []quorum.Condition
	receiver   quorum.Address
}

// newFixture creates a wallet of n fresh members with the given
// threshold on an in-memory store.
func newFixture(t *testing.T, n int, threshold uint32) *fixture {
	t.Helper()
	f := &fixture{
		t:          t,
		db:         store.MemStore(),
		auth:       &quorumtest.CtxAuth{Key: "auth"},
		dispatcher: &quorumtest.Dispatcher{},
		logger:     quorumtest.NewLogger(),
		receiver:   quorumtest.NewCondition().Address(),
	}
	addrs := make([]quorum.Address, n)
	for i := 0; i < n; i++ {
		c := quorumtest.NewCondition()
		f.members = append(f.members, c)
		addrs[i] = c.Address()
	}
	w, err := NewWallet(f.db, f.auth, f.dispatcher, addrs, threshold)
	assert.Nil(t, err)
	f.wallet = w
	return f
}

func (f *fixture) ctx(signer quorum.Condition) quorum.Context {
	ctx := quorum.WithLogger(context.Background(), f.logger)
	return f.auth.SetConditions(ctx, signer)
}

func (f *fixture) propose(signer quorum.Condition, actions ...Action) uint32 {
	f.t.Helper()
	id, err := f.wallet.Propose(f.ctx(signer), f.receiver, actions, "test request")
	assert.Nil(f.t, err)
	return id
}

func (f *fixture) pendingIDs() []uint32 {
	f.t.Helper()
	views, err := f.wallet.ListRequests()
	assert.Nil(f.t, err)
	ids := make([]uint32, 0, len(views))
	for _, v := range views {
		ids = append(ids, v.ID)
	}
	return ids
}

func (f *fixture) confirmations(id uint32) []quorum.Address {
	f.t.Helper()
	view, err := f.wallet.GetRequest(id)
	assert.Nil(f.t, err)
	return view.Confirmations
}

// assertThresholdBound checks 1 <= threshold <= len(members).
func (f *fixture) assertThresholdBound() {
	f.t.Helper()
	info, err := f.wallet.Info()
	assert.Nil(f.t, err)
	if info.Threshold < 1 || int(info.Threshold) > len(info.Members) {
		f.t.Fatalf("threshold %d out of bounds for %d members", info.Threshold, len(info.Members))
	}
}

func addrs(conds ...quorum.Condition) []quorum.Address {
	res := make([]quorum.Address, len(conds))
	for i, c := range conds {
		res[i] = c.Address()
	}
	return res
}

func TestNewWallet(t *testing.T) {
	a, b := quorumtest.NewCondition().Address(), quorumtest.NewCondition().Address()

	cases := map[string]struct {
		members   []quorum.Address
		threshold uint32
		wantErr   *errors.Error
	}{
		"single member": {
			members:   []quorum.Address{a},
			threshold: 1,
		},
		"threshold equal to members": {
			members:   []quorum.Address{a, b},
			threshold: 2,
		},
		"no members": {
			members:   nil,
			threshold: 1,
			wantErr:   errors.ErrEmpty,
		},
		"duplicate member": {
			members:   []quorum.Address{a, b, a},
			threshold: 1,
			wantErr:   errors.ErrDuplicate,
		},
		"zero threshold": {
			members:   []quorum.Address{a, b},
			threshold: 0,
			wantErr:   ErrInvalidThreshold,
		},
		"threshold above members": {
			members:   []quorum.Address{a, b},
			threshold: 3,
			wantErr:   ErrInvalidThreshold,
		},
		"invalid address": {
			members:   []quorum.Address{a, quorum.Address("short")},
			threshold: 1,
			wantErr:   errors.ErrInput,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			db := store.MemStore()
			w, err := NewWallet(db, &quorumtest.Auth{}, &quorumtest.Dispatcher{}, tc.members, tc.threshold)
			if tc.wantErr != nil {
				assert.Nil(t, w)
				assertHasErr(t, tc.wantErr, err)

				// nothing was written
				_, err = LoadWallet(db, &quorumtest.Auth{}, &quorumtest.Dispatcher{})
				assert.IsErr(t, ErrNotInitialized, err)
				return
			}
			assert.Nil(t, err)
			members, err := w.ListMembers()
			assert.Nil(t, err)
			assert.Equal(t, tc.members, members)
			threshold, err := w.Threshold()
			assert.Nil(t, err)
			assert.Equal(t, tc.threshold, threshold)
		})
	}
}

// assertHasErr checks that err or any error grouped in it is of kind want.
func assertHasErr(t testing.TB, want *errors.Error, err error) {
	t.Helper()
	if err == nil {
		t.Fatalf("want %q error, got nil", want)
	}
	if want.Is(err) {
		return
	}
	if u, ok := err.(interface{ Unpack() []error }); ok {
		for _, e := range u.Unpack() {
			if want.Is(e) {
				return
			}
		}
	}
	t.Fatalf("want %q error, got %+v", want, err)
}

func TestReinitializationIsRejected(t *testing.T) {
	f := newFixture(t, 2, 1)

	_, err := NewWallet(f.db, f.auth, f.dispatcher, addrs(quorumtest.NewCondition()), 1)
	assert.IsErr(t, ErrAlreadyInitialized, err)

	// the original membership is kept
	members, err := f.wallet.ListMembers()
	assert.Nil(t, err)
	assert.Equal(t, addrs(f.members...), members)
}

func TestLoadWallet(t *testing.T) {
	db := store.MemStore()
	_, err := LoadWallet(db, &quorumtest.Auth{}, &quorumtest.Dispatcher{})
	assert.IsErr(t, ErrNotInitialized, err)

	a := quorumtest.NewCondition()
	_, err = NewWallet(db, &quorumtest.Auth{}, &quorumtest.Dispatcher{}, addrs(a), 1)
	assert.Nil(t, err)

	w, err := LoadWallet(db, &quorumtest.Auth{}, &quorumtest.Dispatcher{})
	assert.Nil(t, err)
	members, err := w.ListMembers()
	assert.Nil(t, err)
	assert.Equal(t, addrs(a), members)
}

func TestProposeByNonMember(t *testing.T) {
	f := newFixture(t, 2, 2)

	_, err := f.wallet.Propose(f.ctx(quorumtest.NewCondition()), f.receiver, []Action{TransferAction{Amount: 1}}, "")
	assert.IsErr(t, errors.ErrUnauthorized, err)

	// no signer at all
	_, err = f.wallet.Propose(context.Background(), f.receiver, nil, "")
	assert.IsErr(t, errors.ErrUnauthorized, err)

	assert.Equal(t, []uint32{}, f.pendingIDs())
	nonce, err := f.wallet.Nonce()
	assert.Nil(t, err)
	assert.Equal(t, uint32(0), nonce)
}

func TestProposeValidation(t *testing.T) {
	f := newFixture(t, 2, 2)
	a := f.members[0]

	_, err := f.wallet.Propose(f.ctx(a), nil, nil, "")
	assert.FieldError(t, err, "Receiver", errors.ErrEmpty)

	_, err = f.wallet.Propose(f.ctx(a), f.receiver, []Action{AddMemberAction{Member: quorum.Address("bad")}}, "")
	assert.FieldError(t, err, "Actions.0", errors.ErrInput)

	_, err = f.wallet.Propose(f.ctx(a), f.receiver, []Action{TransferAction{}, nil}, "")
	assert.FieldError(t, err, "Actions.1", errors.ErrEmpty)

	assert.Equal(t, []uint32{}, f.pendingIDs())
}

func TestThresholdOneExecutesOnPropose(t *testing.T) {
	f := newFixture(t, 3, 1)

	id := f.propose(f.members[1], TransferAction{Amount: 10})
	assert.Equal(t, uint32(0), id)
	assert.Equal(t, []uint32{}, f.pendingIDs())

	_, err := f.wallet.GetRequest(id)
	assert.IsErr(t, errors.ErrNotFound, err)

	assert.Equal(t, []quorumtest.Effect{{Receiver: f.receiver, Amount: 10}}, f.dispatcher.Effects())
	assert.Equal(t, []string{"Request 0 executed"}, f.logger.Messages("info"))
	f.assertThresholdBound()
}

func TestGetRequestAfterPropose(t *testing.T) {
	f := newFixture(t, 3, 2)
	a := f.members[0]

	actions := []Action{
		TransferAction{Amount: 5},
		FunctionCallAction{Method: "deposit", Args: `{"memo":"x"}`, Deposit: 1, Gas: 300},
	}
	id, err := f.wallet.Propose(f.ctx(a), f.receiver, actions, "pay the bills")
	assert.Nil(t, err)

	view, err := f.wallet.GetRequest(id)
	assert.Nil(t, err)
	assert.Equal(t, &RequestView{
		ID:            id,
		Requester:     a.Address(),
		Receiver:      f.receiver,
		Actions:       actions,
		Description:   "pay the bills",
		Confirmations: []quorum.Address{a.Address()},
		Required:      2,
	}, view)
	assert.Equal(t, 0, len(f.dispatcher.Effects()))
}

func TestConfirmTwice(t *testing.T) {
	f := newFixture(t, 3, 3)
	a, b := f.members[0], f.members[1]

	id := f.propose(a, TransferAction{Amount: 1})
	assert.Nil(t, f.wallet.Confirm(f.ctx(b), id))
	assert.Equal(t, addrs(a, b), f.confirmations(id))

	err := f.wallet.Confirm(f.ctx(b), id)
	assert.IsErr(t, ErrAlreadyConfirmed, err)
	err = f.wallet.Confirm(f.ctx(a), id)
	assert.IsErr(t, ErrAlreadyConfirmed, err)
	assert.Equal(t, addrs(a, b), f.confirmations(id))
}

func TestConfirmErrors(t *testing.T) {
	f := newFixture(t, 2, 2)
	a := f.members[0]
	id := f.propose(a, TransferAction{Amount: 1})

	err := f.wallet.Confirm(f.ctx(quorumtest.NewCondition()), id)
	assert.IsErr(t, errors.ErrUnauthorized, err)
	err = f.wallet.Confirm(f.ctx(a), id+1)
	assert.IsErr(t, errors.ErrNotFound, err)
	assert.Equal(t, addrs(a), f.confirmations(id))
}

func TestRevokeRoundTrip(t *testing.T) {
	f := newFixture(t, 3, 3)
	a, b, c := f.members[0], f.members[1], f.members[2]

	id := f.propose(a, TransferAction{Amount: 1})
	assert.Nil(t, f.wallet.Confirm(f.ctx(b), id))
	before := f.confirmations(id)

	err := f.wallet.Revoke(f.ctx(c), id)
	assert.IsErr(t, ErrNotConfirmed, err)

	assert.Nil(t, f.wallet.Revoke(f.ctx(b), id))
	assert.Equal(t, addrs(a), f.confirmations(id))
	assert.Nil(t, f.wallet.Confirm(f.ctx(b), id))
	assert.Equal(t, before, f.confirmations(id))

	// the requester may revoke its own confirmation too
	assert.Nil(t, f.wallet.Revoke(f.ctx(a), id))
	assert.Equal(t, addrs(b), f.confirmations(id))

	err = f.wallet.Revoke(f.ctx(a), 99)
	assert.IsErr(t, errors.ErrNotFound, err)
	err = f.wallet.Revoke(f.ctx(quorumtest.NewCondition()), id)
	assert.IsErr(t, errors.ErrUnauthorized, err)
	assert.Equal(t, 0, len(f.dispatcher.Effects()))
}

func TestRevokeNeverExecutes(t *testing.T) {
	f := newFixture(t, 2, 2)
	a, b := f.members[0], f.members[1]

	id := f.propose(a, TransferAction{Amount: 1})
	assert.Nil(t, f.wallet.Revoke(f.ctx(a), id))
	assert.Equal(t, []uint32{id}, f.pendingIDs())
	assert.Equal(t, 0, len(f.confirmations(id)))

	// quorum needs both confirmations again
	assert.Nil(t, f.wallet.Confirm(f.ctx(b), id))
	assert.Equal(t, []uint32{id}, f.pendingIDs())
	assert.Nil(t, f.wallet.Confirm(f.ctx(a), id))
	assert.Equal(t, []uint32{}, f.pendingIDs())
	assert.Equal(t, 1, len(f.dispatcher.Effects()))
}

func TestDelete(t *testing.T) {
	f := newFixture(t, 4, 4)
	a, b, c := f.members[0], f.members[1], f.members[2]

	id := f.propose(a, TransferAction{Amount: 1})
	assert.Nil(t, f.wallet.Confirm(f.ctx(b), id))
	assert.Nil(t, f.wallet.Confirm(f.ctx(c), id))

	err := f.wallet.Delete(f.ctx(b), id)
	assert.IsErr(t, ErrForbidden, err)
	err = f.wallet.Delete(f.ctx(quorumtest.NewCondition()), id)
	assert.IsErr(t, errors.ErrUnauthorized, err)
	err = f.wallet.Delete(f.ctx(a), id+1)
	assert.IsErr(t, errors.ErrNotFound, err)
	assert.Equal(t, []uint32{id}, f.pendingIDs())

	assert.Nil(t, f.wallet.Delete(f.ctx(a), id))
	assert.Equal(t, []uint32{}, f.pendingIDs())
	_, err = f.wallet.GetRequest(id)
	assert.IsErr(t, errors.ErrNotFound, err)

	// confirmations are gone with the request
	_, err = NewConfirmationTracker().Get(f.db, id)
	assert.IsErr(t, errors.ErrNotFound, err)

	err = f.wallet.Confirm(f.ctx(f.members[3]), id)
	assert.IsErr(t, errors.ErrNotFound, err)
	assert.Equal(t, 0, len(f.dispatcher.Effects()))
}

func TestNonceIsNeverReused(t *testing.T) {
	f := newFixture(t, 2, 2)
	a := f.members[0]

	first := f.propose(a)
	assert.Nil(t, f.wallet.Delete(f.ctx(a), first))
	second := f.propose(a)
	assert.Equal(t, first+1, second)

	info, err := f.wallet.Info()
	assert.Nil(t, err)
	assert.Equal(t, uint32(2), info.Nonce)
	assert.Equal(t, uint32(1), info.ActiveRequests)
}

func TestTransferScenario(t *testing.T) {
	f := newFixture(t, 3, 2)
	a, b := f.members[0], f.members[1]

	id := f.propose(a, TransferAction{Amount: 100})
	assert.Equal(t, addrs(a), f.confirmations(id))
	assert.Equal(t, []uint32{id}, f.pendingIDs())
	assert.Equal(t, 0, len(f.dispatcher.Effects()))

	assert.Nil(t, f.wallet.Confirm(f.ctx(b), id))
	assert.Equal(t, []uint32{}, f.pendingIDs())
	assert.Equal(t, []quorumtest.Effect{{Receiver: f.receiver, Amount: 100}}, f.dispatcher.Effects())
	assert.Equal(t, []string{"Request 0 executed"}, f.logger.Messages("info"))

	err := f.wallet.Confirm(f.ctx(f.members[2]), id)
	assert.IsErr(t, errors.ErrNotFound, err)
	assert.Equal(t, 1, len(f.dispatcher.Effects()))
}

func TestRemoveMemberScenario(t *testing.T) {
	f := newFixture(t, 2, 2)
	a, b := f.members[0], f.members[1]

	id := f.propose(a, RemoveMemberAction{Member: b.Address()})
	assert.Nil(t, f.wallet.Confirm(f.ctx(b), id))

	members, err := f.wallet.ListMembers()
	assert.Nil(t, err)
	assert.Equal(t, addrs(a, b), members)
	assert.Equal(t, []uint32{}, f.pendingIDs())
	assert.Equal(t, []string{"Request 0 executed"}, f.logger.Messages("info"))
	assert.Equal(t, 1, len(f.logger.Messages("error")))
	f.assertThresholdBound()
}

func TestEmptyActionList(t *testing.T) {
	f := newFixture(t, 2, 2)
	a, b := f.members[0], f.members[1]

	id, err := f.wallet.Propose(f.ctx(a), f.receiver, nil, "")
	assert.Nil(t, err)
	view, err := f.wallet.GetRequest(id)
	assert.Nil(t, err)
	assert.Equal(t, 0, len(view.Actions))
	assert.Equal(t, "", view.Description)

	assert.Nil(t, f.wallet.Confirm(f.ctx(b), id))
	assert.Equal(t, []uint32{}, f.pendingIDs())
	assert.Equal(t, 0, len(f.dispatcher.Effects()))
}

func TestSelfModifyingRequests(t *testing.T) {
	newcomer := quorumtest.NewCondition()

	cases := map[string]struct {
		actions       func(f *fixture) []Action
		wantMembers   func(f *fixture) []quorum.Address
		wantThreshold uint32
		wantRejected  int
		wantEffects   int
	}{
		"add then raise threshold composes": {
			actions: func(f *fixture) []Action {
				return []Action{
					AddMemberAction{Member: newcomer.Address()},
					ChangeThresholdAction{Threshold: 3},
				}
			},
			wantMembers: func(f *fixture) []quorum.Address {
				return append(addrs(f.members...), newcomer.Address())
			},
			wantThreshold: 3,
		},
		"raise threshold before add is rejected": {
			actions: func(f *fixture) []Action {
				return []Action{
					ChangeThresholdAction{Threshold: 3},
					AddMemberAction{Member: newcomer.Address()},
				}
			},
			wantMembers: func(f *fixture) []quorum.Address {
				return append(addrs(f.members...), newcomer.Address())
			},
			wantThreshold: 2,
			wantRejected:  1,
		},
		"add then remove the same member": {
			actions: func(f *fixture) []Action {
				return []Action{
					AddMemberAction{Member: newcomer.Address()},
					RemoveMemberAction{Member: newcomer.Address()},
				}
			},
			wantMembers: func(f *fixture) []quorum.Address {
				return addrs(f.members...)
			},
			wantThreshold: 2,
		},
		"lower threshold then remove": {
			actions: func(f *fixture) []Action {
				return []Action{
					ChangeThresholdAction{Threshold: 1},
					RemoveMemberAction{Member: f.members[1].Address()},
				}
			},
			wantMembers: func(f *fixture) []quorum.Address {
				return addrs(f.members[0])
			},
			wantThreshold: 1,
		},
		"adding an existing member is a no-op": {
			actions: func(f *fixture) []Action {
				return []Action{AddMemberAction{Member: f.members[0].Address()}}
			},
			wantMembers: func(f *fixture) []quorum.Address {
				return addrs(f.members...)
			},
			wantThreshold: 2,
		},
		"zero threshold is rejected": {
			actions: func(f *fixture) []Action {
				return []Action{ChangeThresholdAction{Threshold: 0}}
			},
			wantMembers: func(f *fixture) []quorum.Address {
				return addrs(f.members...)
			},
			wantThreshold: 2,
			wantRejected:  1,
		},
		"rejected action does not stop siblings": {
			actions: func(f *fixture) []Action {
				return []Action{
					TransferAction{Amount: 1},
					ChangeThresholdAction{Threshold: 9},
					FunctionCallAction{Method: "ping"},
				}
			},
			wantMembers: func(f *fixture) []quorum.Address {
				return addrs(f.members...)
			},
			wantThreshold: 2,
			wantRejected:  1,
			wantEffects:   2,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, 2, 2)
			a, b := f.members[0], f.members[1]

			id := f.propose(a, tc.actions(f)...)
			assert.Nil(t, f.wallet.Confirm(f.ctx(b), id))

			members, err := f.wallet.ListMembers()
			assert.Nil(t, err)
			assert.Equal(t, tc.wantMembers(f), members)
			threshold, err := f.wallet.Threshold()
			assert.Nil(t, err)
			assert.Equal(t, tc.wantThreshold, threshold)

			assert.Equal(t, tc.wantRejected, len(f.logger.Messages("error")))
			assert.Equal(t, tc.wantEffects, len(f.dispatcher.Effects()))
			assert.Equal(t, []uint32{}, f.pendingIDs())
			f.assertThresholdBound()
		})
	}
}

func TestEffectsAreDispatchedInActionOrder(t *testing.T) {
	f := newFixture(t, 1, 1)

	f.propose(f.members[0],
		TransferAction{Amount: 1},
		FunctionCallAction{Method: "mint", Args: "{}", Deposit: 2, Gas: 3},
		TransferAction{Amount: 4},
	)
	want := []quorumtest.Effect{
		{Receiver: f.receiver, Amount: 1},
		{Receiver: f.receiver, Method: "mint", Args: "{}", Deposit: 2, Gas: 3},
		{Receiver: f.receiver, Amount: 4},
	}
	assert.Equal(t, want, f.dispatcher.Effects())
}

func TestPendingRequestsSurviveMembershipChange(t *testing.T) {
	f := newFixture(t, 3, 2)
	a, b, c := f.members[0], f.members[1], f.members[2]

	pending := f.propose(c, TransferAction{Amount: 7})
	change := f.propose(a, ChangeThresholdAction{Threshold: 3})
	assert.Nil(t, f.wallet.Confirm(f.ctx(b), change))

	view, err := f.wallet.GetRequest(pending)
	assert.Nil(t, err)
	assert.Equal(t, uint32(3), view.Required)

	// two confirmations are no longer enough
	assert.Nil(t, f.wallet.Confirm(f.ctx(a), pending))
	assert.Equal(t, []uint32{pending}, f.pendingIDs())
	assert.Nil(t, f.wallet.Confirm(f.ctx(b), pending))
	assert.Equal(t, []uint32{}, f.pendingIDs())
	assert.Equal(t, 1, len(f.dispatcher.Effects()))
}

func TestConcurrentConfirmsExecuteOnce(t *testing.T) {
	const n = 8
	f := newFixture(t, n, n)

	id := f.propose(f.members[0], TransferAction{Amount: 3})

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for _, m := range f.members[1:] {
		wg.Add(1)
		go func(m quorum.Condition) {
			defer wg.Done()
			errs <- f.wallet.Confirm(f.ctx(m), id)
		}(m)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.Nil(t, err)
	}

	assert.Equal(t, []uint32{}, f.pendingIDs())
	assert.Equal(t, 1, len(f.dispatcher.Effects()))
}

func TestWalletOnSqlite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.db")
	db, err := sqlite.Open(path)
	assert.Nil(t, err)

	auth := &quorumtest.CtxAuth{Key: "auth"}
	a, b := quorumtest.NewCondition(), quorumtest.NewCondition()
	w, err := NewWallet(db, auth, &quorumtest.Dispatcher{}, addrs(a, b), 2)
	assert.Nil(t, err)

	ctx := auth.SetConditions(context.Background(), a)
	id, err := w.Propose(ctx, b.Address(), []Action{TransferAction{Amount: 9}}, "rent")
	assert.Nil(t, err)
	assert.Nil(t, db.Close())

	db, err = sqlite.Open(path)
	assert.Nil(t, err)
	defer db.Close()

	d := &quorumtest.Dispatcher{}
	w, err = LoadWallet(db, auth, d)
	assert.Nil(t, err)
	view, err := w.GetRequest(id)
	assert.Nil(t, err)
	assert.Equal(t, "rent", view.Description)
	assert.Equal(t, []Action{TransferAction{Amount: 9}}, view.Actions)

	_, err = NewWallet(db, auth, d, addrs(a), 1)
	assert.IsErr(t, ErrAlreadyInitialized, err)

	assert.Nil(t, w.Confirm(auth.SetConditions(context.Background(), b), id))
	assert.Equal(t, []quorumtest.Effect{{Receiver: b.Address(), Amount: 9}}, d.Effects())
}
