package quorumtest

import (
	"testing"

	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/crypto"
)

// NewKey returns a fresh ed25519 key.
func NewKey() *crypto.PrivateKey {
	return crypto.GenPrivKeyEd25519()
}

// NewCondition returns the condition of a fresh key.
func NewCondition() quorum.Condition {
	return NewKey().PublicKey().Condition()
}

// ParseAddress takes an address in a human readable format and returns
// its binary representation.
func ParseAddress(t testing.TB, encodedAddress string) quorum.Address {
	t.Helper()

	addr, err := quorum.ParseAddress(encodedAddress)
	if err != nil {
		t.Fatalf("cannot parse %q address: %s", encodedAddress, err)
	}
	return addr
}
