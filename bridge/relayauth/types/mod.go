// Package types defines the data model of the relay authorities and the
// encoding of the messages they sign.
//
// Every stored value is encoded with SCALE so that the field order is fixed.
package types

import (
	"bytes"
	"slices"
)

// RelayAuthority is an account that serves, or requests to serve, as a relay
// authority. Term is the block after which an authority may renounce, and is
// zero for a candidate.
type RelayAuthority struct {
	AccountID string
	Signer    []byte
	Stake     uint64
	Term      uint64
}

// ScheduledAuthoritiesChange is the pending replacement of the authority set.
type ScheduledAuthoritiesChange struct {
	NextAuthorities []RelayAuthority
	Deadline        uint64
}

// Signers returns the signers of the incoming authorities, in order.
func (c ScheduledAuthoritiesChange) Signers() [][]byte {
	return Signers(c.NextAuthorities)
}

// SignedBy is a signature submitted by an authority.
type SignedBy struct {
	AccountID string
	Signature []byte
}

// AuthoritiesToSign is the open collection of signatures over the message of
// the pending authorities change.
type AuthoritiesToSign struct {
	Message    []byte
	Signatures []SignedBy
}

// MmrRootToSign is the open collection of signatures over the root of a
// scheduled block.
type MmrRootToSign struct {
	MmrRoot    []byte
	Signatures []SignedBy
}

// OpCode identifies the kind of a signed message.
type OpCode [4]byte

// OpCodes are the operation codes of the two kinds of signed messages.
type OpCodes struct {
	MmrRoot           OpCode
	AuthoritiesChange OpCode
}

// Find returns the index of the account in the list, or -1 if it is not
// found.
func Find(authorities []RelayAuthority, account string) int {
	for i, authority := range authorities {
		if authority.AccountID == account {
			return i
		}
	}

	return -1
}

// Signers returns the signers of the list, in order.
func Signers(authorities []RelayAuthority) [][]byte {
	signers := make([][]byte, len(authorities))
	for i, authority := range authorities {
		signers[i] = authority.Signer
	}

	return signers
}

// HasSigned returns true if the account is one of the signers.
func HasSigned(signatures []SignedBy, account string) bool {
	for _, signature := range signatures {
		if signature.AccountID == account {
			return true
		}
	}

	return false
}

// SortSigners sorts the signers in ascending lexicographic order.
func SortSigners(signers [][]byte) {
	slices.SortFunc(signers, bytes.Compare)
}
