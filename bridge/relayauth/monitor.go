package relayauth

import (
	"github.com/bits-and-blooms/bitset"
	"go.dedis.ch/relay/bridge/relayauth/types"
	"go.dedis.ch/relay/core/access"
	"go.dedis.ch/relay/core/execution"
	"go.dedis.ch/relay/core/store"
)

// checkMisbehavior slashes the authorities that did not sign before a
// deadline. A pending rotation that reaches its deadline stays open with a
// deadline pushed by another window. Otherwise, the root collection that is
// one window old is dropped. Errors are logged and never stop the block.
func (s *Service) checkMisbehavior(snap store.Snapshot, step execution.Step) {
	st := s.writer(snap)
	now := step.Block

	next, err := st.nextAuthorities()
	if err != nil {
		s.logger.Err(err).Msg("failed to read next authorities")
		return
	}

	if next != nil {
		if next.Deadline != now {
			return
		}

		toSign, err := st.authoritiesToSign()
		if err != nil {
			s.logger.Err(err).Msg("failed to read authorities to sign")
		} else if toSign == nil {
			s.logger.Warn().Uint64("block", now).Msg("deadline without signature collection")
		} else {
			s.slashMisbehavior(snap, st, step, toSign.Signatures, next)
		}

		next.Deadline += s.config.SubmitDuration

		err = st.setNextAuthorities(*next)
		if err != nil {
			s.logger.Err(err).Msg("failed to delay deadline")
			return
		}

		duration, err := st.submitDuration(s.config.SubmitDuration)
		if err != nil {
			s.logger.Err(err).Msg("failed to read submit duration")
			return
		}

		err = st.setSubmitDuration(duration + s.config.SubmitDuration)
		if err != nil {
			s.logger.Err(err).Msg("failed to widen submit duration")
		}

		s.logger.Warn().Uint64("deadline", next.Deadline).Msg("authorities change delayed")

		return
	}

	duration, err := st.submitDuration(s.config.SubmitDuration)
	if err != nil {
		s.logger.Err(err).Msg("failed to read submit duration")
		return
	}

	if now < duration {
		return
	}

	at := now - duration

	toSign, err := st.mmrRootToSign(at)
	if err != nil {
		s.logger.Err(err).Uint64("schedule", at).Msg("failed to read mmr root to sign")
		return
	}

	if toSign == nil {
		return
	}

	err = s.closeMmrRoot(st, at)
	if err != nil {
		s.logger.Err(err).Uint64("schedule", at).Msg("failed to drop mmr root to sign")
	}

	s.slashMisbehavior(snap, st, step, toSign.Signatures, nil)

	s.logger.Warn().Uint64("schedule", at).Int("signatures", len(toSign.Signatures)).
		Msg("mmr root deadline missed")
}

// slashMisbehavior slashes the whole stake of every current authority that is
// not one of the signers. The authorities stay in the set with a zero stake,
// and so do they in the next set when it is given.
func (s *Service) slashMisbehavior(snap store.Snapshot, st storage, step execution.Step,
	signatures []types.SignedBy, next *types.ScheduledAuthoritiesChange) {

	authorities, err := st.authorities()
	if err != nil {
		s.logger.Err(err).Msg("failed to read authorities")
		return
	}

	signed := bitset.New(uint(len(authorities)))
	for _, signature := range signatures {
		position := types.Find(authorities, signature.AccountID)
		if position >= 0 {
			signed.Set(uint(position))
		}
	}

	changed := false

	for i := range authorities {
		if signed.Test(uint(i)) {
			continue
		}

		authority := &authorities[i]
		account := access.AccountID(authority.AccountID)

		s.emit(step, SlashedOnMisbehavior{Account: account, Stake: authority.Stake})

		if authority.Stake == 0 {
			continue
		}

		err = s.currency.RemoveLock(snap, s.config.LockID, account)
		if err != nil {
			s.logger.Err(err).Str("account", authority.AccountID).Msg("failed to unlock stake")
			continue
		}

		slashed, err := s.currency.Slash(snap, account, authority.Stake)
		if err != nil {
			s.logger.Err(err).Str("account", authority.AccountID).Msg("failed to slash")
		}

		s.metrics.slashed.Add(float64(slashed))

		s.logger.Warn().Str("account", authority.AccountID).
			Uint64("stake", authority.Stake).
			Uint64("slashed", slashed).
			Msg("slashed on misbehavior")

		authority.Stake = 0
		changed = true

		if next != nil {
			position := types.Find(next.NextAuthorities, authority.AccountID)
			if position >= 0 {
				next.NextAuthorities[position].Stake = 0
			}
		}
	}

	if !changed {
		return
	}

	err = st.setAuthorities(authorities)
	if err != nil {
		s.logger.Err(err).Msg("failed to write authorities")
	}
}
