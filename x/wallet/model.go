package wallet

import (
	"strconv"

	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/errors"
)

// Membership is the set of members controlling a wallet together with
// the number of confirmations required to execute a request.
type Membership struct {
	Members   []quorum.Address `json:"members"`
	Threshold uint32           `json:"threshold"`
}

func (m *Membership) Validate() error {
	var errs error
	if len(m.Members) == 0 {
		errs = errors.Append(errs, errors.Field("Members", errors.ErrEmpty, "at least one member required"))
	}
	for i, a := range m.Members {
		field := "Members." + strconv.Itoa(i)
		if err := a.Validate(); err != nil {
			errs = errors.AppendField(errs, field, err)
			continue
		}
		for _, b := range m.Members[:i] {
			if a.Equals(b) {
				errs = errors.Append(errs, errors.Field(field, errors.ErrDuplicate, "member %s", a))
				break
			}
		}
	}
	if m.Threshold == 0 || int(m.Threshold) > len(m.Members) {
		errs = errors.Append(errs, errors.Field("Threshold", ErrInvalidThreshold,
			"must be between 1 and %d, got %d", len(m.Members), m.Threshold))
	}
	return errs
}

// index returns the position of addr in the member list or -1.
func (m *Membership) index(addr quorum.Address) int {
	for i, a := range m.Members {
		if a.Equals(addr) {
			return i
		}
	}
	return -1
}

// Request is a proposed list of actions waiting for confirmations. It is
// never modified once stored.
type Request struct {
	Requester   quorum.Address `json:"requester"`
	Receiver    quorum.Address `json:"receiver"`
	Actions     []Action       `json:"actions"`
	Description string         `json:"description"`
}

func (r *Request) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Requester", r.Requester.Validate())
	errs = errors.AppendField(errs, "Receiver", r.Receiver.Validate())
	errs = errors.Append(errs, validateActions(r.Actions))
	return errs
}

// Confirmations is the set of members that confirmed a request.
type Confirmations struct {
	Members []quorum.Address `json:"members"`
}

func (c *Confirmations) Validate() error {
	var errs error
	for i, a := range c.Members {
		errs = errors.AppendField(errs, "Members."+strconv.Itoa(i), a.Validate())
	}
	return errs
}

func (c *Confirmations) index(addr quorum.Address) int {
	for i, a := range c.Members {
		if a.Equals(addr) {
			return i
		}
	}
	return -1
}

// RequestView is a pending request as presented to clients.
type RequestView struct {
	ID            uint32           `json:"id"`
	Requester     quorum.Address   `json:"requester"`
	Receiver      quorum.Address   `json:"receiver"`
	Actions       []Action         `json:"actions"`
	Description   string           `json:"description"`
	Confirmations []quorum.Address `json:"confirmations"`
	Required      uint32           `json:"required"`
}

// Info summarizes the state of a wallet.
type Info struct {
	Members        []quorum.Address `json:"members"`
	Threshold      uint32           `json:"threshold"`
	Nonce          uint32           `json:"nonce"`
	ActiveRequests uint32           `json:"active_requests"`
}
