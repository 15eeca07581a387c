/*
Package crypto provides the ed25519 keys and signatures used to
authenticate callers. A public key maps to a quorum.Condition and
through it to the member Address.
*/
package crypto

import (
	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/errors"
	"golang.org/x/crypto/ed25519"
)

// ExtensionName is used for the Condition of all public keys.
const ExtensionName = "sigs"

// PubKey verifies signatures and exposes the matching condition.
type PubKey interface {
	Verify(message []byte, sig *Signature) bool
	Condition() quorum.Condition
}

// Signer produces signatures for a public key.
type Signer interface {
	Sign(message []byte) (*Signature, error)
	PublicKey() *PublicKey
}

// PublicKey is an ed25519 public key.
type PublicKey struct {
	Ed25519 []byte `json:"ed25519"`
}

// PrivateKey is an ed25519 private key.
type PrivateKey struct {
	Ed25519 []byte `json:"ed25519"`
}

// Signature is an ed25519 signature.
type Signature struct {
	Ed25519 []byte `json:"ed25519"`
}

var _ PubKey = (*PublicKey)(nil)

// Validate checks the key has the right size.
func (p *PublicKey) Validate() error {
	if p == nil || len(p.Ed25519) != ed25519.PublicKeySize {
		return errors.Wrap(errors.ErrInput, "invalid ed25519 public key")
	}
	return nil
}

// Verify verifies the signature was created with this message and public key
func (p *PublicKey) Verify(message []byte, sig *Signature) bool {
	if p.Validate() != nil || sig == nil || len(sig.Ed25519) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(p.Ed25519), message, sig.Ed25519)
}

// Condition encodes the public key into a permission
func (p *PublicKey) Condition() quorum.Condition {
	return quorum.NewCondition(ExtensionName, "ed25519", p.Ed25519)
}

// Address returns the member address of this key.
func (p *PublicKey) Address() quorum.Address {
	return p.Condition().Address()
}

var _ Signer = (*PrivateKey)(nil)

// Sign returns a matching signature for this private key
func (p *PrivateKey) Sign(message []byte) (*Signature, error) {
	if len(p.Ed25519) != ed25519.PrivateKeySize {
		return nil, errors.Wrap(errors.ErrInput, "invalid ed25519 private key")
	}
	return &Signature{Ed25519: ed25519.Sign(ed25519.PrivateKey(p.Ed25519), message)}, nil
}

// PublicKey returns the corresponding PublicKey
func (p *PrivateKey) PublicKey() *PublicKey {
	pub := ed25519.PrivateKey(p.Ed25519).Public().(ed25519.PublicKey)
	return &PublicKey{Ed25519: pub}
}

// GenPrivKeyEd25519 returns a random new private key
func GenPrivKeyEd25519() *PrivateKey {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		panic(err)
	}
	return &PrivateKey{Ed25519: priv}
}

// PrivKeyEd25519FromSeed will deterministically generate a private key from
// a given seed. Use if you have a strong source of external randomness,
// or for deterministic keys in test cases.
func PrivKeyEd25519FromSeed(seed []byte) *PrivateKey {
	return &PrivateKey{Ed25519: ed25519.NewKeyFromSeed(seed)}
}
