package wallet

import (
	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/errors"
	"github.com/iov-one/quorum/orm"
)

// ConfirmationTracker keeps the set of confirming members per request
// id. A set exists exactly as long as its request.
type ConfirmationTracker struct {
	bucket orm.Bucket
}

// NewConfirmationTracker returns a tracker using the "confirms" bucket.
func NewConfirmationTracker() ConfirmationTracker {
	return ConfirmationTracker{bucket: orm.NewBucket("confirms", ModuleCdc)}
}

// Create starts the confirmation set of a request with a single member.
func (t ConfirmationTracker) Create(db quorum.KVStore, id uint32, seed quorum.Address) error {
	switch ok, err := t.bucket.Has(db, requestKey(id)); {
	case err != nil:
		return err
	case ok:
		return errors.Wrapf(errors.ErrDuplicate, "confirmations of request %d", id)
	}
	return t.bucket.Put(db, requestKey(id), &Confirmations{Members: []quorum.Address{seed}})
}

// Get returns the members that confirmed request id.
func (t ConfirmationTracker) Get(db quorum.ReadOnlyKVStore, id uint32) ([]quorum.Address, error) {
	c, err := t.load(db, id)
	if err != nil {
		return nil, err
	}
	return c.Members, nil
}

func (t ConfirmationTracker) load(db quorum.ReadOnlyKVStore, id uint32) (*Confirmations, error) {
	var c Confirmations
	if err := t.bucket.One(db, requestKey(id), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Add records a confirmation of member. Confirming twice fails with
// ErrAlreadyConfirmed.
func (t ConfirmationTracker) Add(db quorum.KVStore, id uint32, member quorum.Address) error {
	c, err := t.load(db, id)
	if err != nil {
		return err
	}
	if c.index(member) >= 0 {
		return errors.Wrapf(ErrAlreadyConfirmed, "%s on request %d", member, id)
	}
	c.Members = append(c.Members, member.Clone())
	return t.bucket.Put(db, requestKey(id), c)
}

// Remove withdraws the confirmation of member. It fails with
// ErrNotConfirmed if member never confirmed.
func (t ConfirmationTracker) Remove(db quorum.KVStore, id uint32, member quorum.Address) error {
	c, err := t.load(db, id)
	if err != nil {
		return err
	}
	i := c.index(member)
	if i < 0 {
		return errors.Wrapf(ErrNotConfirmed, "%s on request %d", member, id)
	}
	c.Members = append(c.Members[:i], c.Members[i+1:]...)
	return t.bucket.Put(db, requestKey(id), c)
}

// Destroy removes the confirmation set of request id.
func (t ConfirmationTracker) Destroy(db quorum.KVStore, id uint32) error {
	return t.bucket.Delete(db, requestKey(id))
}

// Count returns the number of members that confirmed request id.
func (t ConfirmationTracker) Count(db quorum.ReadOnlyKVStore, id uint32) (uint32, error) {
	c, err := t.load(db, id)
	if err != nil {
		return 0, err
	}
	return uint32(len(c.Members)), nil
}
