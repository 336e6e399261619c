// This file contains the implementations of the origin predicates.

package access

import "golang.org/x/xerrors"

// RootPredicate is a predicate that only accepts the root origin.
//
// - implements access.Predicate
type RootPredicate struct{}

// EnsureRoot returns a predicate that only accepts the root origin.
func EnsureRoot() RootPredicate {
	return RootPredicate{}
}

// EnsureOrigin implements access.Predicate. It returns nil if the origin is
// root.
func (RootPredicate) EnsureOrigin(o Origin) error {
	if o.kind != KindRoot {
		return xerrors.Errorf("expected root, got %v: %w", o, ErrBadOrigin)
	}

	return nil
}

// MembersPredicate accepts the root origin and any origin signed by one of
// its members.
//
// - implements access.Predicate
type MembersPredicate struct {
	members map[AccountID]struct{}
}

// EnsureMembers returns a predicate for the root origin and the given
// accounts.
func EnsureMembers(accounts ...AccountID) MembersPredicate {
	members := make(map[AccountID]struct{}, len(accounts))

	for _, account := range accounts {
		members[account] = struct{}{}
	}

	return MembersPredicate{members: members}
}

// EnsureOrigin implements access.Predicate. It returns nil if the origin is
// root or signed by a member.
func (p MembersPredicate) EnsureOrigin(o Origin) error {
	switch o.kind {
	case KindRoot:
		return nil
	case KindSigned:
		_, found := p.members[o.account]
		if found {
			return nil
		}

		return xerrors.Errorf("%s is not a member: %w", o.account, ErrBadOrigin)
	default:
		return xerrors.Errorf("expected root or member, got %v: %w", o, ErrBadOrigin)
	}
}

// AnyPredicate accepts an origin as soon as one of its predicates does.
//
// - implements access.Predicate
type AnyPredicate []Predicate

// EnsureAny returns a predicate that is satisfied by any of the given
// predicates.
func EnsureAny(predicates ...Predicate) AnyPredicate {
	return AnyPredicate(predicates)
}

// EnsureOrigin implements access.Predicate.
func (p AnyPredicate) EnsureOrigin(o Origin) error {
	for _, predicate := range p {
		if predicate.EnsureOrigin(o) == nil {
			return nil
		}
	}

	return xerrors.Errorf("no predicate matches %v: %w", o, ErrBadOrigin)
}
