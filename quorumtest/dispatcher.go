package quorumtest

import (
	"sync"

	"github.com/iov-one/quorum"
)

// Effect is a single call received by a Dispatcher.
type Effect struct {
	Receiver quorum.Address
	// Method is empty for transfers.
	Method  string
	Args    string
	Amount  uint64
	Deposit uint64
	Gas     uint64
}

// IsTransfer returns true if the effect was a value transfer.
func (e Effect) IsTransfer() bool {
	return e.Method == ""
}

// Dispatcher records all dispatched effects in order. It is safe for
// concurrent use.
type Dispatcher struct {
	mu      sync.Mutex
	effects []Effect
}

// DispatchTransfer records a transfer.
func (d *Dispatcher) DispatchTransfer(ctx quorum.Context, receiver quorum.Address, amount uint64) {
	d.record(Effect{Receiver: receiver, Amount: amount})
}

// DispatchCall records a function call.
func (d *Dispatcher) DispatchCall(ctx quorum.Context, receiver quorum.Address, method, args string, deposit, gas uint64) {
	d.record(Effect{Receiver: receiver, Method: method, Args: args, Deposit: deposit, Gas: gas})
}

func (d *Dispatcher) record(e Effect) {
	d.mu.Lock()
	d.effects = append(d.effects, e)
	d.mu.Unlock()
}

// Effects returns a copy of all recorded effects.
func (d *Dispatcher) Effects() []Effect {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Effect(nil), d.effects...)
}
