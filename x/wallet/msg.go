package wallet

import (
	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/errors"
)

const (
	pathProposeMsg = "wallet/propose"
	pathConfirmMsg = "wallet/confirm"
	pathRevokeMsg  = "wallet/revoke"
	pathDeleteMsg  = "wallet/delete"
)

// ProposeMsg creates a new request.
type ProposeMsg struct {
	Receiver    quorum.Address `json:"receiver"`
	Actions     []Action       `json:"actions"`
	Description string         `json:"description"`
}

var _ quorum.Msg = (*ProposeMsg)(nil)

func (ProposeMsg) Path() string {
	return pathProposeMsg
}

func (m *ProposeMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Receiver", m.Receiver.Validate())
	errs = errors.Append(errs, validateActions(m.Actions))
	return errs
}

// ConfirmMsg confirms a pending request.
type ConfirmMsg struct {
	RequestID uint32 `json:"request_id"`
}

var _ quorum.Msg = (*ConfirmMsg)(nil)

func (ConfirmMsg) Path() string {
	return pathConfirmMsg
}

func (m *ConfirmMsg) Validate() error {
	return nil
}

// RevokeMsg withdraws a confirmation.
type RevokeMsg struct {
	RequestID uint32 `json:"request_id"`
}

var _ quorum.Msg = (*RevokeMsg)(nil)

func (RevokeMsg) Path() string {
	return pathRevokeMsg
}

func (m *RevokeMsg) Validate() error {
	return nil
}

// DeleteMsg deletes a pending request.
type DeleteMsg struct {
	RequestID uint32 `json:"request_id"`
}

var _ quorum.Msg = (*DeleteMsg)(nil)

func (DeleteMsg) Path() string {
	return pathDeleteMsg
}

func (m *DeleteMsg) Validate() error {
	return nil
}
