package wallet

import (
	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/errors"
	"github.com/iov-one/quorum/orm"
)

var membershipKey = []byte("config")

// MembershipStore keeps the member set and the threshold of a wallet.
// Only the wallet engine mutates it.
type MembershipStore struct {
	bucket orm.Bucket
}

// NewMembershipStore returns a store using the "members" bucket.
func NewMembershipStore() MembershipStore {
	return MembershipStore{bucket: orm.NewBucket("members", ModuleCdc)}
}

// Exists returns true if a membership was ever stored.
func (s MembershipStore) Exists(db quorum.ReadOnlyKVStore) (bool, error) {
	return s.bucket.Has(db, membershipKey)
}

// Init stores the initial membership. It must be valid.
func (s MembershipStore) Init(db quorum.KVStore, members []quorum.Address, threshold uint32) error {
	m := &Membership{Members: members, Threshold: threshold}
	if err := m.Validate(); err != nil {
		return err
	}
	return s.bucket.Put(db, membershipKey, m)
}

func (s MembershipStore) load(db quorum.ReadOnlyKVStore) (*Membership, error) {
	var m Membership
	if err := s.bucket.One(db, membershipKey, &m); err != nil {
		if errors.ErrNotFound.Is(err) {
			return nil, errors.Wrap(ErrNotInitialized, "no membership")
		}
		return nil, err
	}
	return &m, nil
}

// Contains returns true if addr is a member.
func (s MembershipStore) Contains(db quorum.ReadOnlyKVStore, addr quorum.Address) (bool, error) {
	m, err := s.load(db)
	if err != nil {
		return false, err
	}
	return m.index(addr) >= 0, nil
}

// Add inserts a member. Adding an existing member is a no-op.
func (s MembershipStore) Add(db quorum.KVStore, addr quorum.Address) error {
	if err := addr.Validate(); err != nil {
		return errors.Field("Member", err, "invalid address")
	}
	m, err := s.load(db)
	if err != nil {
		return err
	}
	if m.index(addr) >= 0 {
		return nil
	}
	m.Members = append(m.Members, addr.Clone())
	return s.bucket.Put(db, membershipKey, m)
}

// Remove deletes a member. Removing an unknown address is a no-op. It
// fails with ErrInvariantViolation if fewer members than the threshold
// would be left.
func (s MembershipStore) Remove(db quorum.KVStore, addr quorum.Address) error {
	m, err := s.load(db)
	if err != nil {
		return err
	}
	i := m.index(addr)
	if i < 0 {
		return nil
	}
	if uint32(len(m.Members)-1) < m.Threshold {
		return errors.Wrapf(ErrInvariantViolation,
			"removing %s leaves %d members for threshold %d", addr, len(m.Members)-1, m.Threshold)
	}
	m.Members = append(m.Members[:i], m.Members[i+1:]...)
	return s.bucket.Put(db, membershipKey, m)
}

// Size returns the number of members.
func (s MembershipStore) Size(db quorum.ReadOnlyKVStore) (uint32, error) {
	m, err := s.load(db)
	if err != nil {
		return 0, err
	}
	return uint32(len(m.Members)), nil
}

// List returns a snapshot of all members in the order they joined.
func (s MembershipStore) List(db quorum.ReadOnlyKVStore) ([]quorum.Address, error) {
	m, err := s.load(db)
	if err != nil {
		return nil, err
	}
	return m.Members, nil
}

// Threshold returns the number of confirmations required to execute.
func (s MembershipStore) Threshold(db quorum.ReadOnlyKVStore) (uint32, error) {
	m, err := s.load(db)
	if err != nil {
		return 0, err
	}
	return m.Threshold, nil
}

// SetThreshold replaces the threshold. It must be between one and the
// number of members.
func (s MembershipStore) SetThreshold(db quorum.KVStore, n uint32) error {
	m, err := s.load(db)
	if err != nil {
		return err
	}
	if n == 0 || int(n) > len(m.Members) {
		return errors.Wrapf(ErrInvalidThreshold, "must be between 1 and %d, got %d", len(m.Members), n)
	}
	m.Threshold = n
	return s.bucket.Put(db, membershipKey, m)
}
