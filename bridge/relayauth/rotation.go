package relayauth

import (
	"github.com/samber/lo"
	"go.dedis.ch/relay/bridge/relayauth/types"
	"go.dedis.ch/relay/core/access"
	"go.dedis.ch/relay/core/execution"
	"go.dedis.ch/relay/core/store"
	"golang.org/x/xerrors"
)

// scheduleAuthoritiesChange opens the rotation to the next set. The message
// to sign commits to the next term and to the signers of the next set.
func (s *Service) scheduleAuthoritiesChange(snap store.Snapshot, step execution.Step,
	next []types.RelayAuthority) error {

	st := s.writer(snap)

	term, err := st.nextTerm()
	if err != nil {
		return err
	}

	payload, err := types.AuthoritiesChangePayload(s.config.RuntimeName,
		s.config.OpCodes.AuthoritiesChange, term, types.Signers(next))
	if err != nil {
		return xerrors.Errorf("failed to make message: %v", err)
	}

	message := s.sign.Hash(payload)

	err = st.setAuthoritiesToSign(types.AuthoritiesToSign{Message: message})
	if err != nil {
		return err
	}

	err = st.setNextAuthorities(types.ScheduledAuthoritiesChange{
		NextAuthorities: next,
		Deadline:        step.Block + s.config.SubmitDuration,
	})
	if err != nil {
		return err
	}

	duration, err := st.submitDuration(s.config.SubmitDuration)
	if err != nil {
		return err
	}

	err = st.setSubmitDuration(duration + s.config.SubmitDuration)
	if err != nil {
		return err
	}

	s.emit(step, AuthoritiesChangeScheduled{Message: message})

	s.logger.Info().
		Uint32("term", term).
		Int("members", len(next)).
		Uint64("deadline", step.Block+s.config.SubmitDuration).
		Msg("authorities change scheduled")

	return nil
}

// SubmitSignedAuthorities records the signature of the pending change by the
// signed origin. A signature already recorded for the account is ignored.
// When the threshold of the current authorities is reached, the change is
// applied and, unless the sync is deferred, the next set replaces the current
// one.
func (s *Service) SubmitSignedAuthorities(snap store.Snapshot, step execution.Step, signature []byte) error {
	who, err := access.EnsureSigned(origin(step))
	if err != nil {
		return err
	}

	st := s.writer(snap)

	next, err := st.nextAuthorities()
	if err != nil {
		return err
	}

	if next == nil {
		return ErrOnAuthoritiesChangeDis
	}

	toSign, err := st.authoritiesToSign()
	if err != nil {
		return err
	}

	if toSign == nil {
		// The change has been signed and waits for the sync.
		return nil
	}

	if types.HasSigned(toSign.Signatures, string(who)) {
		return nil
	}

	authorities, err := st.authorities()
	if err != nil {
		return err
	}

	position := types.Find(authorities, string(who))
	if position < 0 {
		return ErrAuthorityNE
	}

	if !s.sign.VerifySignature(signature, toSign.Message, authorities[position].Signer) {
		return ErrSignatureInv
	}

	if len(toSign.Signatures) >= s.config.MaxMembers {
		return ErrTooManyMembers
	}

	toSign.Signatures = append(toSign.Signatures, types.SignedBy{
		AccountID: string(who),
		Signature: signature,
	})

	if !s.reached(len(toSign.Signatures), len(authorities)) {
		err = st.setAuthoritiesToSign(*toSign)
		if err != nil {
			return err
		}

		s.metrics.signatures.WithLabelValues("authorities").Inc()

		return nil
	}

	term, err := st.nextTerm()
	if err != nil {
		return err
	}

	err = s.applyAuthoritiesChange(snap, st, next)
	if err != nil {
		return err
	}

	s.emit(step, AuthoritiesChangeSigned{
		Term:       term,
		Signers:    next.Signers(),
		Signatures: toSign.Signatures,
	})

	s.logger.Info().Uint32("term", term).Int("signatures", len(toSign.Signatures)).
		Msg("authorities change signed")

	if !s.config.DeferSync {
		err = s.syncAuthoritiesChange(st, next)
		if err != nil {
			return err
		}
	}

	s.metrics.signatures.WithLabelValues("authorities").Inc()

	return nil
}

// applyAuthoritiesChange unlocks the outgoing authorities and closes the
// signature collection. The pending change stays until it is synced.
func (s *Service) applyAuthoritiesChange(snap store.Snapshot, st storage,
	next *types.ScheduledAuthoritiesChange) error {

	authorities, err := st.authorities()
	if err != nil {
		return err
	}

	for _, authority := range authorities {
		if types.Find(next.NextAuthorities, authority.AccountID) >= 0 {
			continue
		}

		err = s.currency.RemoveLock(snap, s.config.LockID, access.AccountID(authority.AccountID))
		if err != nil {
			return xerrors.Errorf("failed to unlock stake: %v", err)
		}
	}

	err = st.remove(authoritiesToSignKey)
	if err != nil {
		return err
	}

	return st.remove(submitDurationKey)
}

// syncAuthoritiesChange replaces the current set with the next one and moves
// to the next term.
func (s *Service) syncAuthoritiesChange(st storage, next *types.ScheduledAuthoritiesChange) error {
	term, err := st.nextTerm()
	if err != nil {
		return err
	}

	err = st.setAuthorities(next.NextAuthorities)
	if err != nil {
		return err
	}

	err = st.remove(nextAuthoritiesKey)
	if err != nil {
		return err
	}

	err = st.setNextTerm(term + 1)
	if err != nil {
		return err
	}

	s.logger.Info().Uint32("term", term+1).
		Strs("authorities", lo.Map(next.NextAuthorities, func(a types.RelayAuthority, _ int) string {
			return a.AccountID
		})).
		Msg("authorities synced")

	return nil
}

// reached returns true if the number of signatures reaches the threshold of
// the authorities.
func (s *Service) reached(signatures, authorities int) bool {
	return types.FromRational(uint64(signatures), uint64(authorities)) >= s.config.SignThreshold
}
