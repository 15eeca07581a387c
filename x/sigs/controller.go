package sigs

import (
	"crypto/sha512"
	"encoding/binary"

	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/crypto"
	"github.com/iov-one/quorum/errors"
)

// SignCodeV1 is the current way to prefix the bytes we use to build
// a signature
var SignCodeV1 = []byte{0, 0xCA, 0xFE, 0}

// StdSignature is a signature over a transaction together with the
// key and sequence it was made with.
type StdSignature struct {
	Pubkey    *crypto.PublicKey `json:"pubkey"`
	Signature *crypto.Signature `json:"signature"`
	Sequence  int64             `json:"sequence"`
}

func (s *StdSignature) Validate() error {
	var errs error
	if s.Pubkey == nil {
		errs = errors.Append(errs, errors.Field("Pubkey", errors.ErrEmpty, "required"))
	} else {
		errs = errors.AppendField(errs, "Pubkey", s.Pubkey.Validate())
	}
	if s.Signature == nil || len(s.Signature.Ed25519) == 0 {
		errs = errors.Append(errs, errors.Field("Signature", errors.ErrEmpty, "required"))
	}
	if s.Sequence < 0 {
		errs = errors.AppendField(errs, "Sequence", ErrInvalidSequence)
	}
	return errs
}

// VerifySignatures checks all signatures over signBytes, which must have
// at least one, and returns the signer conditions in order.
func VerifySignatures(db quorum.KVStore, sigs []*StdSignature, signBytes []byte, domain string) ([]quorum.Condition, error) {
	if len(sigs) == 0 {
		return nil, errors.Wrap(errors.ErrUnauthorized, "missing signature")
	}
	signers := make([]quorum.Condition, 0, len(sigs))
	for _, sig := range sigs {
		signer, err := VerifySignature(db, sig, signBytes, domain)
		if err != nil {
			return nil, err
		}
		signers = append(signers, signer)
	}
	return signers, nil
}

// VerifySignature checks one signature against signBytes and increments
// the sequence of the signer. The sequence is read and written in
// separate steps: callers sharing db must not verify concurrently.
func VerifySignature(db quorum.KVStore, sig *StdSignature, signBytes []byte, domain string) (quorum.Condition, error) {
	if err := sig.Validate(); err != nil {
		return nil, err
	}

	bucket := NewBucket()
	user, err := bucket.GetOrCreate(db, sig.Pubkey)
	if err != nil {
		return nil, err
	}

	toSign, err := BuildSignBytes(signBytes, domain, sig.Sequence)
	if err != nil {
		return nil, err
	}
	if !user.Pubkey.Verify(toSign, sig.Signature) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "invalid signature")
	}

	if err := user.CheckAndIncrementSequence(sig.Sequence); err != nil {
		return nil, err
	}
	if err := bucket.Save(db, user); err != nil {
		return nil, err
	}
	return user.Pubkey.Condition(), nil
}

/*
BuildSignBytes combines all info on the actual tx before signing

We use the following format:

version | len(domain) | domain       | nonce             | signBytes
4bytes  | uint8       | ascii string | int64 (bigendian) | serialized transaction

This is then prehashed with sha512 before fed into
the public key signing/verification step
*/
func BuildSignBytes(signBytes []byte, domain string, seq int64) ([]byte, error) {
	if seq < 0 {
		return nil, errors.Wrap(ErrInvalidSequence, "negative")
	}
	if !quorum.IsValidWalletID(domain) {
		return nil, errors.Wrapf(errors.ErrInput, "domain: %v", domain)
	}

	nonce := make([]byte, 8)
	binary.BigEndian.PutUint64(nonce, uint64(seq))

	output := make([]byte, 0, 4+1+len(domain)+8+len(signBytes))
	output = append(output, SignCodeV1...)
	output = append(output, uint8(len(domain)))
	output = append(output, domain...)
	output = append(output, nonce...)
	output = append(output, signBytes...)

	// constant length input for eddsa
	hashed := sha512.Sum512(output)
	return hashed[:], nil
}

// Sign creates a signature over signBytes for the given domain and
// sequence.
func Sign(signer crypto.Signer, signBytes []byte, domain string, seq int64) (*StdSignature, error) {
	toSign, err := BuildSignBytes(signBytes, domain, seq)
	if err != nil {
		return nil, err
	}
	sig, err := signer.Sign(toSign)
	if err != nil {
		return nil, err
	}
	return &StdSignature{
		Pubkey:    signer.PublicKey(),
		Signature: sig,
		Sequence:  seq,
	}, nil
}
