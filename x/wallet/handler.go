package wallet

import (
	"encoding/binary"
	"fmt"

	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/errors"
)

// Handler routes wallet messages to a Wallet.
type Handler struct {
	wallet *Wallet
}

var _ quorum.Handler = Handler{}

// NewHandler returns a handler delivering messages to w.
func NewHandler(w *Wallet) Handler {
	return Handler{wallet: w}
}

// Deliver validates msg and applies it. The result of a ProposeMsg
// carries the request id as 4 big endian bytes.
func (h Handler) Deliver(ctx quorum.Context, msg quorum.Msg) (*quorum.Result, error) {
	if err := msg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid message")
	}

	switch m := msg.(type) {
	case *ProposeMsg:
		id, err := h.wallet.Propose(ctx, m.Receiver, m.Actions, m.Description)
		if err != nil {
			return nil, err
		}
		data := make([]byte, 4)
		binary.BigEndian.PutUint32(data, id)
		return &quorum.Result{Data: data, Log: fmt.Sprintf("Request %d proposed", id)}, nil
	case *ConfirmMsg:
		if err := h.wallet.Confirm(ctx, m.RequestID); err != nil {
			return nil, err
		}
		return &quorum.Result{Log: fmt.Sprintf("Request %d confirmed", m.RequestID)}, nil
	case *RevokeMsg:
		if err := h.wallet.Revoke(ctx, m.RequestID); err != nil {
			return nil, err
		}
		return &quorum.Result{Log: fmt.Sprintf("Request %d revoked", m.RequestID)}, nil
	case *DeleteMsg:
		if err := h.wallet.Delete(ctx, m.RequestID); err != nil {
			return nil, err
		}
		return &quorum.Result{Log: fmt.Sprintf("Request %d deleted", m.RequestID)}, nil
	default:
		return nil, errors.WithType(errors.ErrMsg, msg)
	}
}
