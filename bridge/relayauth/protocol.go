package relayauth

import (
	"bytes"

	"go.dedis.ch/relay/bridge/relayauth/types"
	"go.dedis.ch/relay/core/execution"
	"go.dedis.ch/relay/core/store"
)

// Protocol is the capability of the relay authorities that is exposed to the
// other modules of the chain.
type Protocol interface {
	// ScheduleMmrRoot schedules the signing of the root of the block. It is a
	// no-op if the block is already scheduled.
	ScheduleMmrRoot(snap store.Snapshot, step execution.Step, block uint64) error

	// CheckAuthoritiesChangeToSync returns nil if the signers are the ones of
	// the pending change for the term, in any order.
	CheckAuthoritiesChangeToSync(snap store.Readable, term uint32, signers [][]byte) error

	// SyncAuthoritiesChange replaces the current set with the pending one.
	SyncAuthoritiesChange(snap store.Snapshot, step execution.Step) error
}

// CheckAuthoritiesChangeToSync implements relayauth.Protocol.
func (s *Service) CheckAuthoritiesChangeToSync(snap store.Readable, term uint32, signers [][]byte) error {
	st := s.reader(snap)

	nextTerm, err := st.nextTerm()
	if err != nil {
		return err
	}

	if term != nextTerm {
		return ErrTermMis
	}

	next, err := st.nextAuthorities()
	if err != nil {
		return err
	}

	if next == nil {
		return ErrNextAuthoritiesNE
	}

	expected := next.Signers()
	types.SortSigners(expected)

	actual := append([][]byte{}, signers...)
	types.SortSigners(actual)

	if len(expected) != len(actual) {
		return ErrAuthoritiesMis
	}

	for i := range expected {
		if !bytes.Equal(expected[i], actual[i]) {
			return ErrAuthoritiesMis
		}
	}

	return nil
}

// SyncAuthoritiesChange implements relayauth.Protocol. The change is applied
// first if it has not been signed yet, so that the outgoing authorities are
// unlocked in any case.
func (s *Service) SyncAuthoritiesChange(snap store.Snapshot, step execution.Step) error {
	st := s.writer(snap)

	next, err := st.nextAuthorities()
	if err != nil {
		return err
	}

	if next == nil {
		return ErrNextAuthoritiesNE
	}

	err = s.applyAuthoritiesChange(snap, st, next)
	if err != nil {
		return err
	}

	return s.syncAuthoritiesChange(st, next)
}
