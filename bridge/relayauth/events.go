package relayauth

import (
	"go.dedis.ch/relay/bridge/relayauth/types"
	"go.dedis.ch/relay/core/access"
)

// MmrRootScheduled is emitted when the root of a block is scheduled for
// signing.
type MmrRootScheduled struct {
	Block uint64
}

// MmrRootSigned is emitted when enough authorities have signed the root of a
// block.
type MmrRootSigned struct {
	Block      uint64
	MmrRoot    []byte
	Signatures []types.SignedBy
}

// AuthoritiesChangeScheduled is emitted with the message to sign when a new
// authority set is proposed.
type AuthoritiesChangeScheduled struct {
	Message []byte
}

// AuthoritiesChangeSigned is emitted when enough authorities have signed the
// change to the incoming set. Term is the term that has been signed.
type AuthoritiesChangeSigned struct {
	Term       uint32
	Signers    [][]byte
	Signatures []types.SignedBy
}

// SlashedOnMisbehavior is emitted for every authority that missed a signing
// deadline, with the stake it had.
type SlashedOnMisbehavior struct {
	Account access.AccountID
	Stake   uint64
}

// CandidateEvicted is emitted when a candidate is pushed out of a full pool by
// a higher stake.
type CandidateEvicted struct {
	Account access.AccountID
	Stake   uint64
}
