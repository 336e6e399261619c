// Package currency defines the primitives to lock and slash the balance of an
// account.
//
// A lock is identified by a name so that several modules can lock the same
// account independently. The usable balance of an account is its free balance
// minus the largest of its locks.
package currency

import (
	"go.dedis.ch/relay/core/access"
	"go.dedis.ch/relay/core/store"
)

// LockID is the identifier of a named lock.
type LockID [8]byte

// NewLockID returns the lock identifier for the name, truncated or padded to
// eight bytes.
func NewLockID(name string) LockID {
	var id LockID
	copy(id[:], name)

	return id
}

// String implements fmt.Stringer.
func (id LockID) String() string {
	end := len(id)
	for end > 0 && id[end-1] == 0 {
		end--
	}

	return string(id[:end])
}

// Currency is the interface of a lockable and slashable balance.
type Currency interface {
	// FreeBalance returns the free balance of the account, locked funds
	// included.
	FreeBalance(snap store.Readable, who access.AccountID) (uint64, error)

	// SetLock creates or replaces the lock of the account.
	SetLock(snap store.Snapshot, id LockID, who access.AccountID, amount uint64) error

	// RemoveLock removes the lock if it exists.
	RemoveLock(snap store.Snapshot, id LockID, who access.AccountID) error

	// Slash removes up to the amount from the free balance of the account and
	// returns what has actually been slashed.
	Slash(snap store.Snapshot, who access.AccountID, amount uint64) (uint64, error)

	// Transfer moves the amount from the usable balance of an account to
	// another one.
	Transfer(snap store.Snapshot, from, to access.AccountID, amount uint64) error
}
