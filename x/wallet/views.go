package wallet

import (
	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/errors"
)

// GetRequest returns the pending request id with its confirmations, or
// ErrNotFound.
func (w *Wallet) GetRequest(id uint32) (*RequestView, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	req, err := w.requests.Get(w.db, id)
	if err != nil {
		return nil, errors.Wrapf(err, "request %d", id)
	}
	threshold, err := w.members.Threshold(w.db)
	if err != nil {
		return nil, err
	}
	view, err := w.view(w.db, id, req, threshold)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// ListRequests returns all pending requests. The order is not part of
// the contract.
func (w *Wallet) ListRequests() ([]RequestView, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	threshold, err := w.members.Threshold(w.db)
	if err != nil {
		return nil, err
	}
	entries, err := w.requests.List(w.db)
	if err != nil {
		return nil, err
	}
	views := make([]RequestView, 0, len(entries))
	for _, e := range entries {
		v, err := w.view(w.db, e.ID, e.Request, threshold)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

func (w *Wallet) view(db quorum.ReadOnlyKVStore, id uint32, req *Request, threshold uint32) (RequestView, error) {
	confirmations, err := w.confirms.Get(db, id)
	if err != nil {
		return RequestView{}, errors.Wrapf(err, "confirmations of request %d", id)
	}
	return RequestView{
		ID:            id,
		Requester:     req.Requester,
		Receiver:      req.Receiver,
		Actions:       req.Actions,
		Description:   req.Description,
		Confirmations: confirmations,
		Required:      threshold,
	}, nil
}

// ListMembers returns all members of the wallet.
func (w *Wallet) ListMembers() ([]quorum.Address, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.members.List(w.db)
}

// Threshold returns the number of confirmations required to execute a
// request.
func (w *Wallet) Threshold() (uint32, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.members.Threshold(w.db)
}

// Nonce returns the id the next proposed request will get.
func (w *Wallet) Nonce() (uint32, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.requests.Nonce(w.db)
}

// Info returns a summary of the wallet state.
func (w *Wallet) Info() (*Info, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	members, err := w.members.List(w.db)
	if err != nil {
		return nil, err
	}
	threshold, err := w.members.Threshold(w.db)
	if err != nil {
		return nil, err
	}
	nonce, err := w.requests.Nonce(w.db)
	if err != nil {
		return nil, err
	}
	active, err := w.requests.Count(w.db)
	if err != nil {
		return nil, err
	}
	return &Info{
		Members:        members,
		Threshold:      threshold,
		Nonce:          nonce,
		ActiveRequests: active,
	}, nil
}
