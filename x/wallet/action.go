package wallet

import (
	"strconv"

	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/errors"
)

// Action is a single operation performed when a request executes. The
// set of implementations is closed: TransferAction, FunctionCallAction,
// AddMemberAction, RemoveMemberAction and ChangeThresholdAction.
type Action interface {
	Validate() error
	isAction()
}

// TransferAction moves Amount to the receiver of the request.
type TransferAction struct {
	Amount uint64 `json:"amount"`
}

// FunctionCallAction calls Method on the receiver of the request with
// an attached deposit and gas budget.
type FunctionCallAction struct {
	Method  string `json:"method"`
	Args    string `json:"args"`
	Deposit uint64 `json:"deposit"`
	Gas     uint64 `json:"gas"`
}

// AddMemberAction adds Member to the wallet.
type AddMemberAction struct {
	Member quorum.Address `json:"member"`
}

// RemoveMemberAction removes Member from the wallet.
type RemoveMemberAction struct {
	Member quorum.Address `json:"member"`
}

// ChangeThresholdAction replaces the number of confirmations required
// to execute a request.
type ChangeThresholdAction struct {
	Threshold uint32 `json:"threshold"`
}

func (TransferAction) isAction()        {}
func (FunctionCallAction) isAction()    {}
func (AddMemberAction) isAction()       {}
func (RemoveMemberAction) isAction()    {}
func (ChangeThresholdAction) isAction() {}

func (a TransferAction) Validate() error {
	return nil
}

func (a FunctionCallAction) Validate() error {
	return nil
}

func (a AddMemberAction) Validate() error {
	return errors.Field("Member", a.Member.Validate(), "invalid address")
}

func (a RemoveMemberAction) Validate() error {
	return errors.Field("Member", a.Member.Validate(), "invalid address")
}

// Validate accepts any value. A threshold is checked against the
// membership at execution time.
func (a ChangeThresholdAction) Validate() error {
	return nil
}

// validateActions checks every action of the list. An empty list is
// valid.
func validateActions(actions []Action) error {
	var errs error
	for i, a := range actions {
		field := "Actions." + strconv.Itoa(i)
		if a == nil {
			errs = errors.Append(errs, errors.Field(field, errors.ErrEmpty, "missing action"))
			continue
		}
		errs = errors.AppendField(errs, field, a.Validate())
	}
	return errs
}
