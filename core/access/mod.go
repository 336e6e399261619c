// Package access defines the origins of a call and the predicates that decide
// whether an origin is allowed to perform a privileged operation.
//
// An origin is either the root (privileged dispatch, e.g. governance), a
// signed account, or none (unsigned, e.g. a block hook).
package access

import (
	"fmt"

	"golang.org/x/xerrors"
)

// AccountID is the identifier of an account on the local chain.
type AccountID string

// Kind is the kind of an origin.
type Kind int

const (
	// KindNone is the kind of an unsigned origin.
	KindNone Kind = iota

	// KindRoot is the kind of the privileged origin.
	KindRoot

	// KindSigned is the kind of an origin signed by an account.
	KindSigned
)

// ErrBadOrigin is returned when an origin does not satisfy a predicate.
var ErrBadOrigin = xerrors.New("bad origin")

// Origin is the origin of a call.
type Origin struct {
	kind    Kind
	account AccountID
}

// Root returns the privileged origin.
func Root() Origin {
	return Origin{kind: KindRoot}
}

// Signed returns the origin of a call signed by the given account.
func Signed(account AccountID) Origin {
	return Origin{kind: KindSigned, account: account}
}

// None returns the unsigned origin.
func None() Origin {
	return Origin{}
}

// GetKind returns the kind of the origin.
func (o Origin) GetKind() Kind {
	return o.kind
}

// GetAccount returns the account of a signed origin, or an empty identifier.
func (o Origin) GetAccount() AccountID {
	return o.account
}

// String implements fmt.Stringer. It returns a human readable representation
// of the origin.
func (o Origin) String() string {
	switch o.kind {
	case KindRoot:
		return "root"
	case KindSigned:
		return fmt.Sprintf("signed(%s)", o.account)
	default:
		return "none"
	}
}

// EnsureSigned returns the account of the origin if it is signed, otherwise it
// returns an error.
func EnsureSigned(o Origin) (AccountID, error) {
	if o.kind != KindSigned {
		return "", xerrors.Errorf("expected signed, got %v: %w", o, ErrBadOrigin)
	}

	return o.account, nil
}

// Predicate is the interface to implement to authorize an origin.
type Predicate interface {
	// EnsureOrigin returns nil if the origin is authorized, otherwise an
	// error.
	EnsureOrigin(Origin) error
}
