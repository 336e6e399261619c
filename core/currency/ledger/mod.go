// Package ledger implements the currency primitives on top of a snapshot.
//
// Each account is stored as a SCALE-encoded record under a namespace of its
// own so that it can share the snapshot with other modules. Slashed funds are
// burnt and removed from the total issuance.
package ledger

import (
	"github.com/ChainSafe/gossamer/pkg/scale"
	"go.dedis.ch/relay/core/access"
	"go.dedis.ch/relay/core/currency"
	"go.dedis.ch/relay/core/store"
	"go.dedis.ch/relay/core/store/prefixed"
	"golang.org/x/xerrors"
)

const namespace = "ledger"

var issuanceKey = []byte("total_issuance")

// ErrInsufficientBalance is returned when the usable balance of an account
// does not cover a transfer.
var ErrInsufficientBalance = xerrors.New("insufficient balance")

// Lock is a named lock of an account.
type Lock struct {
	ID     currency.LockID
	Amount uint64
}

// Account is the stored record of an account.
type Account struct {
	Free  uint64
	Locks []Lock
}

// Locked returns the amount of the lock, or zero if it does not exist.
func (a Account) Locked(id currency.LockID) uint64 {
	for _, lock := range a.Locks {
		if lock.ID == id {
			return lock.Amount
		}
	}

	return 0
}

// Frozen returns the largest lock of the account.
func (a Account) Frozen() uint64 {
	max := uint64(0)
	for _, lock := range a.Locks {
		if lock.Amount > max {
			max = lock.Amount
		}
	}

	return max
}

// Usable returns the part of the free balance that is not locked.
func (a Account) Usable() uint64 {
	frozen := a.Frozen()
	if frozen >= a.Free {
		return 0
	}

	return a.Free - frozen
}

// Ledger is the default implementation of the currency.
//
// - implements currency.Currency
type Ledger struct{}

// NewLedger creates a new ledger.
func NewLedger() Ledger {
	return Ledger{}
}

// GetAccount returns the record of the account. An unknown account has an
// empty record.
func (l Ledger) GetAccount(snap store.Readable, who access.AccountID) (Account, error) {
	var account Account

	data, err := prefixed.NewReadable(namespace, snap).Get(accountKey(who))
	if err != nil {
		return account, xerrors.Errorf("failed to read account: %v", err)
	}

	if len(data) == 0 {
		return account, nil
	}

	err = scale.Unmarshal(data, &account)
	if err != nil {
		return account, xerrors.Errorf("failed to decode account: %v", err)
	}

	return account, nil
}

// TotalIssuance returns the sum of every free balance.
func (l Ledger) TotalIssuance(snap store.Readable) (uint64, error) {
	data, err := prefixed.NewReadable(namespace, snap).Get(issuanceKey)
	if err != nil {
		return 0, xerrors.Errorf("failed to read issuance: %v", err)
	}

	if len(data) == 0 {
		return 0, nil
	}

	var issuance uint64

	err = scale.Unmarshal(data, &issuance)
	if err != nil {
		return 0, xerrors.Errorf("failed to decode issuance: %v", err)
	}

	return issuance, nil
}

// Mint creates new funds for the account.
func (l Ledger) Mint(snap store.Snapshot, who access.AccountID, amount uint64) error {
	account, err := l.GetAccount(snap, who)
	if err != nil {
		return err
	}

	account.Free += amount

	err = l.setAccount(snap, who, account)
	if err != nil {
		return err
	}

	return l.addIssuance(snap, amount, true)
}

// FreeBalance implements currency.Currency.
func (l Ledger) FreeBalance(snap store.Readable, who access.AccountID) (uint64, error) {
	account, err := l.GetAccount(snap, who)
	if err != nil {
		return 0, err
	}

	return account.Free, nil
}

// Locked returns the amount of the named lock of the account.
func (l Ledger) Locked(snap store.Readable, id currency.LockID, who access.AccountID) (uint64, error) {
	account, err := l.GetAccount(snap, who)
	if err != nil {
		return 0, err
	}

	return account.Locked(id), nil
}

// SetLock implements currency.Currency. A lock of zero is the same as removing
// the lock.
func (l Ledger) SetLock(snap store.Snapshot, id currency.LockID, who access.AccountID, amount uint64) error {
	if amount == 0 {
		return l.RemoveLock(snap, id, who)
	}

	account, err := l.GetAccount(snap, who)
	if err != nil {
		return err
	}

	replaced := false
	for i, lock := range account.Locks {
		if lock.ID == id {
			account.Locks[i].Amount = amount
			replaced = true
		}
	}

	if !replaced {
		account.Locks = append(account.Locks, Lock{ID: id, Amount: amount})
	}

	return l.setAccount(snap, who, account)
}

// RemoveLock implements currency.Currency.
func (l Ledger) RemoveLock(snap store.Snapshot, id currency.LockID, who access.AccountID) error {
	account, err := l.GetAccount(snap, who)
	if err != nil {
		return err
	}

	locks := account.Locks[:0]
	for _, lock := range account.Locks {
		if lock.ID != id {
			locks = append(locks, lock)
		}
	}

	if len(locks) == len(account.Locks) {
		return nil
	}

	account.Locks = locks

	return l.setAccount(snap, who, account)
}

// Slash implements currency.Currency. The locks do not protect the funds from
// being slashed.
func (l Ledger) Slash(snap store.Snapshot, who access.AccountID, amount uint64) (uint64, error) {
	account, err := l.GetAccount(snap, who)
	if err != nil {
		return 0, err
	}

	slashed := amount
	if slashed > account.Free {
		slashed = account.Free
	}

	if slashed == 0 {
		return 0, nil
	}

	account.Free -= slashed

	err = l.setAccount(snap, who, account)
	if err != nil {
		return 0, err
	}

	err = l.addIssuance(snap, slashed, false)
	if err != nil {
		return 0, err
	}

	return slashed, nil
}

// Transfer implements currency.Currency.
func (l Ledger) Transfer(snap store.Snapshot, from, to access.AccountID, amount uint64) error {
	sender, err := l.GetAccount(snap, from)
	if err != nil {
		return err
	}

	if sender.Usable() < amount {
		return xerrors.Errorf("%s has %d usable: %w", from, sender.Usable(), ErrInsufficientBalance)
	}

	if from == to || amount == 0 {
		return nil
	}

	sender.Free -= amount

	err = l.setAccount(snap, from, sender)
	if err != nil {
		return err
	}

	receiver, err := l.GetAccount(snap, to)
	if err != nil {
		return err
	}

	receiver.Free += amount

	return l.setAccount(snap, to, receiver)
}

func (l Ledger) setAccount(snap store.Snapshot, who access.AccountID, account Account) error {
	data, err := scale.Marshal(account)
	if err != nil {
		return xerrors.Errorf("failed to encode account: %v", err)
	}

	err = prefixed.NewSnapshot(namespace, snap).Set(accountKey(who), data)
	if err != nil {
		return xerrors.Errorf("failed to write account: %v", err)
	}

	return nil
}

func (l Ledger) addIssuance(snap store.Snapshot, amount uint64, mint bool) error {
	issuance, err := l.TotalIssuance(snap)
	if err != nil {
		return err
	}

	if mint {
		issuance += amount
	} else {
		issuance -= amount
	}

	data, err := scale.Marshal(issuance)
	if err != nil {
		return xerrors.Errorf("failed to encode issuance: %v", err)
	}

	err = prefixed.NewSnapshot(namespace, snap).Set(issuanceKey, data)
	if err != nil {
		return xerrors.Errorf("failed to write issuance: %v", err)
	}

	return nil
}

func accountKey(who access.AccountID) []byte {
	return append([]byte("account:"), string(who)...)
}
