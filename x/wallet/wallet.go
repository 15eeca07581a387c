package wallet

import (
	"fmt"
	"sync"

	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/errors"
	"github.com/iov-one/quorum/x/utils"
)

// Dispatcher delivers value transfers and function calls to their
// receivers. Calls are fire and forget: the wallet never learns about
// the outcome.
type Dispatcher interface {
	DispatchTransfer(ctx quorum.Context, receiver quorum.Address, amount uint64)
	DispatchCall(ctx quorum.Context, receiver quorum.Address, method, args string, deposit, gas uint64)
}

// Wallet is the execution engine of a single wallet. It exclusively owns
// the membership, requests and confirmations stored in db.
//
// All mutating operations are serialized and run in a savepoint of db:
// a failing operation leaves no trace.
type Wallet struct {
	mu         sync.RWMutex
	db         quorum.CacheableKVStore
	auth       quorum.Authenticator
	dispatcher Dispatcher

	members  MembershipStore
	requests RequestStore
	confirms ConfirmationTracker
}

// InitWallet writes the initial membership of a wallet into db. It fails
// with ErrAlreadyInitialized if db already holds a wallet.
func InitWallet(db quorum.KVStore, members []quorum.Address, threshold uint32) error {
	ms := NewMembershipStore()
	switch ok, err := ms.Exists(db); {
	case err != nil:
		return err
	case ok:
		return errors.Wrap(ErrAlreadyInitialized, "wallet state exists")
	}
	return ms.Init(db, members, threshold)
}

// NewWallet initializes a wallet in db and returns its engine. Members
// must be unique and the threshold between one and the number of
// members. Initializing a store that already holds a wallet fails with
// ErrAlreadyInitialized.
func NewWallet(db quorum.CacheableKVStore, auth quorum.Authenticator, d Dispatcher, members []quorum.Address, threshold uint32) (*Wallet, error) {
	err := utils.Savepoint(db, func(db quorum.CacheableKVStore) error {
		return InitWallet(db, members, threshold)
	})
	if err != nil {
		return nil, err
	}
	return newWallet(db, auth, d), nil
}

// LoadWallet returns the engine of a wallet previously initialized in
// db, or ErrNotInitialized.
func LoadWallet(db quorum.CacheableKVStore, auth quorum.Authenticator, d Dispatcher) (*Wallet, error) {
	ok, err := NewMembershipStore().Exists(db)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrap(ErrNotInitialized, "no wallet state")
	}
	return newWallet(db, auth, d), nil
}

func newWallet(db quorum.CacheableKVStore, auth quorum.Authenticator, d Dispatcher) *Wallet {
	return &Wallet{
		db:         db,
		auth:       auth,
		dispatcher: d,
		members:    NewMembershipStore(),
		requests:   NewRequestStore(),
		confirms:   NewConfirmationTracker(),
	}
}

// Propose stores a new request with the caller as requester and first
// confirmation. It returns the id of the request, which may already be
// executed when the threshold is one.
func (w *Wallet) Propose(ctx quorum.Context, receiver quorum.Address, actions []Action, description string) (uint32, error) {
	var id uint32
	err := w.mutate(ctx, func(db quorum.CacheableKVStore, out *outcome) error {
		caller, err := w.requireMember(ctx, db)
		if err != nil {
			return err
		}
		if err := receiver.Validate(); err != nil {
			return errors.Field("Receiver", err, "invalid address")
		}
		if err := validateActions(actions); err != nil {
			return err
		}
		if id, err = w.requests.NextID(db); err != nil {
			return err
		}
		req := &Request{
			Requester:   caller,
			Receiver:    receiver,
			Actions:     actions,
			Description: description,
		}
		if err := w.requests.Insert(db, id, req); err != nil {
			return err
		}
		if err := w.confirms.Create(db, id, caller); err != nil {
			return err
		}
		return w.executeIfReady(db, id, out)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Confirm adds the caller to the confirmations of request id and
// executes it once the threshold is reached.
func (w *Wallet) Confirm(ctx quorum.Context, id uint32) error {
	return w.mutate(ctx, func(db quorum.CacheableKVStore, out *outcome) error {
		caller, err := w.requireMember(ctx, db)
		if err != nil {
			return err
		}
		if err := w.requirePending(db, id); err != nil {
			return err
		}
		if err := w.confirms.Add(db, id, caller); err != nil {
			return err
		}
		return w.executeIfReady(db, id, out)
	})
}

// Revoke withdraws the confirmation of the caller from request id. It
// never executes the request.
func (w *Wallet) Revoke(ctx quorum.Context, id uint32) error {
	return w.mutate(ctx, func(db quorum.CacheableKVStore, out *outcome) error {
		caller, err := w.requireMember(ctx, db)
		if err != nil {
			return err
		}
		if err := w.requirePending(db, id); err != nil {
			return err
		}
		return w.confirms.Remove(db, id, caller)
	})
}

// Delete removes request id together with its confirmations. Only the
// requester may delete a request, regardless of how many members
// confirmed it.
func (w *Wallet) Delete(ctx quorum.Context, id uint32) error {
	return w.mutate(ctx, func(db quorum.CacheableKVStore, out *outcome) error {
		caller, err := w.requireMember(ctx, db)
		if err != nil {
			return err
		}
		req, err := w.requests.Get(db, id)
		if err != nil {
			return errors.Wrapf(err, "request %d", id)
		}
		if !req.Requester.Equals(caller) {
			return errors.Wrapf(ErrForbidden, "only the requester can delete request %d", id)
		}
		return w.remove(db, id)
	})
}

// outcome collects what must happen after the state change of an
// operation was written.
type outcome struct {
	effects  []effect
	executed []uint32
	rejected []rejection
}

type effect struct {
	receiver quorum.Address
	action   Action
}

type rejection struct {
	request uint32
	action  int
	err     error
}

// mutate runs fn in a savepoint of the wallet store. Effects and logs
// collected by fn are only emitted when the savepoint was written.
func (w *Wallet) mutate(ctx quorum.Context, fn func(db quorum.CacheableKVStore, out *outcome) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var out outcome
	err := utils.Savepoint(w.db, func(db quorum.CacheableKVStore) error {
		return fn(db, &out)
	})
	if err != nil {
		return err
	}

	logger := quorum.GetLogger(ctx)
	for _, r := range out.rejected {
		logger.Error("Action rejected", "request", r.request, "action", r.action, "err", r.err)
	}
	for _, e := range out.effects {
		switch a := e.action.(type) {
		case TransferAction:
			w.dispatcher.DispatchTransfer(ctx, e.receiver, a.Amount)
		case FunctionCallAction:
			w.dispatcher.DispatchCall(ctx, e.receiver, a.Method, a.Args, a.Deposit, a.Gas)
		}
	}
	for _, id := range out.executed {
		logger.Info(fmt.Sprintf("Request %d executed", id))
	}
	return nil
}

// requireMember returns the address of the caller if it is a member.
func (w *Wallet) requireMember(ctx quorum.Context, db quorum.ReadOnlyKVStore) (quorum.Address, error) {
	signer := quorum.MainSigner(ctx, w.auth)
	if signer == nil {
		return nil, errors.Wrap(errors.ErrUnauthorized, "no signer")
	}
	caller := signer.Address()
	ok, err := w.members.Contains(db, caller)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrapf(errors.ErrUnauthorized, "%s is not a member", caller)
	}
	return caller, nil
}

func (w *Wallet) requirePending(db quorum.ReadOnlyKVStore, id uint32) error {
	ok, err := w.requests.Has(db, id)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "request %d", id)
	}
	return nil
}

func (w *Wallet) executeIfReady(db quorum.CacheableKVStore, id uint32, out *outcome) error {
	count, err := w.confirms.Count(db, id)
	if err != nil {
		return err
	}
	threshold, err := w.members.Threshold(db)
	if err != nil {
		return err
	}
	if count < threshold {
		return nil
	}
	return w.execute(db, id, out)
}

// execute applies all actions of request id in order against the
// current state and removes the request. A membership action that
// breaks an invariant is rolled back and skipped, the remaining actions
// still run.
func (w *Wallet) execute(db quorum.CacheableKVStore, id uint32, out *outcome) error {
	req, err := w.requests.Get(db, id)
	if err != nil {
		return err
	}

	for i, action := range req.Actions {
		switch a := action.(type) {
		case TransferAction, FunctionCallAction:
			out.effects = append(out.effects, effect{receiver: req.Receiver, action: a})
		case AddMemberAction, RemoveMemberAction, ChangeThresholdAction:
			err := utils.Savepoint(db, func(db quorum.CacheableKVStore) error {
				return w.applyMembership(db, a)
			})
			if errors.ErrDatabase.Is(err) {
				return err
			}
			if err != nil {
				out.rejected = append(out.rejected, rejection{request: id, action: i, err: err})
			}
		default:
			return errors.Wrapf(errors.ErrHuman, "unknown action %T", action)
		}
	}

	if err := w.remove(db, id); err != nil {
		return err
	}
	out.executed = append(out.executed, id)
	return nil
}

func (w *Wallet) applyMembership(db quorum.KVStore, action Action) error {
	switch a := action.(type) {
	case AddMemberAction:
		return w.members.Add(db, a.Member)
	case RemoveMemberAction:
		return w.members.Remove(db, a.Member)
	case ChangeThresholdAction:
		return w.members.SetThreshold(db, a.Threshold)
	}
	return errors.Wrapf(errors.ErrHuman, "not a membership action %T", action)
}

// remove deletes a request together with its confirmations.
func (w *Wallet) remove(db quorum.KVStore, id uint32) error {
	if err := w.requests.Remove(db, id); err != nil {
		return err
	}
	return w.confirms.Destroy(db, id)
}
