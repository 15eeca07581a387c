package sigs

import (
	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/crypto"
	"github.com/iov-one/quorum/errors"
	"github.com/iov-one/quorum/orm"
	amino "github.com/tendermint/go-amino"
)

// BucketName is where we store the accounts
const BucketName = "sigs"

// maxSequenceValue is the greatest sequence a javascript client can
// represent exactly (2^53 - 1).
const maxSequenceValue = (1 << 53) - 1

// UserData is the stored state of a single signer.
type UserData struct {
	Pubkey   *crypto.PublicKey `json:"pubkey"`
	Sequence int64             `json:"sequence"`
}

func (u *UserData) Validate() error {
	var errs error
	if u.Pubkey == nil {
		errs = errors.Append(errs, errors.Field("Pubkey", errors.ErrEmpty, "required"))
	} else {
		errs = errors.AppendField(errs, "Pubkey", u.Pubkey.Validate())
	}
	if u.Sequence < 0 {
		errs = errors.AppendField(errs, "Sequence", ErrInvalidSequence)
	}
	return errs
}

// CheckAndIncrementSequence increments the sequence if it equals
// expected, otherwise returns ErrInvalidSequence.
func (u *UserData) CheckAndIncrementSequence(expected int64) error {
	if u.Sequence != expected {
		return errors.Wrapf(ErrInvalidSequence, "mismatch expected %d, got %d", expected, u.Sequence)
	}
	next := u.Sequence + 1
	if next <= 0 || next > maxSequenceValue {
		return errors.Wrap(errors.ErrOverflow, "sequence out of range")
	}
	u.Sequence = next
	return nil
}

// Bucket stores UserData by signer address.
type Bucket struct {
	orm.Bucket
}

// NewBucket creates the proper bucket for this extension
func NewBucket() Bucket {
	return Bucket{
		Bucket: orm.NewBucket(BucketName, amino.NewCodec()),
	}
}

// GetOrCreate loads the user data of pubkey, or returns a fresh one
// starting at sequence zero.
func (b Bucket) GetOrCreate(db quorum.ReadOnlyKVStore, pubkey *crypto.PublicKey) (*UserData, error) {
	var user UserData
	switch err := b.One(db, pubkey.Address(), &user); {
	case errors.ErrNotFound.Is(err):
		return &UserData{Pubkey: pubkey}, nil
	case err != nil:
		return nil, err
	}
	return &user, nil
}

// Save stores the user under its address.
func (b Bucket) Save(db quorum.KVStore, user *UserData) error {
	if user.Pubkey == nil {
		return errors.Field("Pubkey", errors.ErrEmpty, "required")
	}
	return b.Put(db, user.Pubkey.Address(), user)
}

// Sequence returns the next sequence to sign with for the given key.
func (b Bucket) Sequence(db quorum.ReadOnlyKVStore, pubkey *crypto.PublicKey) (int64, error) {
	user, err := b.GetOrCreate(db, pubkey)
	if err != nil {
		return 0, err
	}
	return user.Sequence, nil
}

// AddressSequence returns the next sequence of the signer with address
// addr. Unknown signers start at zero.
func (b Bucket) AddressSequence(db quorum.ReadOnlyKVStore, addr quorum.Address) (int64, error) {
	var user UserData
	switch err := b.One(db, addr, &user); {
	case errors.ErrNotFound.Is(err):
		return 0, nil
	case err != nil:
		return 0, err
	}
	return user.Sequence, nil
}
