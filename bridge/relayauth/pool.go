package relayauth

import (
	"github.com/samber/lo"
	"go.dedis.ch/relay/bridge/relayauth/types"
	"go.dedis.ch/relay/core/access"
	"go.dedis.ch/relay/core/execution"
	"go.dedis.ch/relay/core/store"
	"golang.org/x/xerrors"
)

// RequestAuthority adds the signed origin to the candidate pool with the
// stake locked. When the pool is full, the candidate with the lowest stake is
// evicted if the new stake is strictly higher.
func (s *Service) RequestAuthority(snap store.Snapshot, step execution.Step, stake uint64, signer []byte) error {
	who, err := access.EnsureSigned(origin(step))
	if err != nil {
		return err
	}

	st := s.writer(snap)

	next, err := st.nextAuthorities()
	if err != nil {
		return err
	}

	if next != nil && types.Find(next.NextAuthorities, string(who)) >= 0 {
		return ErrAuthorityAE
	}

	authorities, err := st.authorities()
	if err != nil {
		return err
	}

	if types.Find(authorities, string(who)) >= 0 {
		return ErrAuthorityAE
	}

	free, err := s.currency.FreeBalance(snap, who)
	if err != nil {
		return xerrors.Errorf("failed to read balance: %v", err)
	}

	if stake > free {
		return ErrStakeIns
	}

	candidates, err := st.candidates()
	if err != nil {
		return err
	}

	if types.Find(candidates, string(who)) >= 0 {
		return ErrCandidateAE
	}

	var evicted *types.RelayAuthority

	if len(candidates) >= s.config.MaxCandidates {
		position := minimumStake(candidates)
		if stake <= candidates[position].Stake {
			return ErrStakeIns
		}

		evictee := candidates[position]
		evicted = &evictee

		candidates = append(candidates[:position:position], candidates[position+1:]...)
	}

	if evicted != nil {
		err = s.currency.RemoveLock(snap, s.config.LockID, access.AccountID(evicted.AccountID))
		if err != nil {
			return xerrors.Errorf("failed to unlock evictee: %v", err)
		}
	}

	err = s.currency.SetLock(snap, s.config.LockID, who, stake)
	if err != nil {
		return xerrors.Errorf("failed to lock stake: %v", err)
	}

	candidates = append(candidates, types.RelayAuthority{
		AccountID: string(who),
		Signer:    signer,
		Stake:     stake,
	})

	err = st.setCandidates(candidates)
	if err != nil {
		return err
	}

	if evicted != nil {
		s.emit(step, CandidateEvicted{
			Account: access.AccountID(evicted.AccountID),
			Stake:   evicted.Stake,
		})
	}

	s.logger.Info().Str("account", string(who)).Uint64("stake", stake).Msg("new candidate")

	return nil
}

// CancelRequest removes the signed origin from the candidate pool and unlocks
// its stake.
func (s *Service) CancelRequest(snap store.Snapshot, step execution.Step) error {
	who, err := access.EnsureSigned(origin(step))
	if err != nil {
		return err
	}

	st := s.writer(snap)

	candidates, err := st.candidates()
	if err != nil {
		return err
	}

	position := types.Find(candidates, string(who))
	if position < 0 {
		return ErrCandidateNE
	}

	candidates = append(candidates[:position:position], candidates[position+1:]...)

	err = s.currency.RemoveLock(snap, s.config.LockID, who)
	if err != nil {
		return xerrors.Errorf("failed to unlock stake: %v", err)
	}

	return st.setCandidates(candidates)
}

// KillCandidates empties the candidate pool and unlocks every stake.
func (s *Service) KillCandidates(snap store.Snapshot, step execution.Step) error {
	err := s.reset.EnsureOrigin(origin(step))
	if err != nil {
		return err
	}

	st := s.writer(snap)

	candidates, err := st.candidates()
	if err != nil {
		return err
	}

	for _, candidate := range candidates {
		err = s.currency.RemoveLock(snap, s.config.LockID, access.AccountID(candidate.AccountID))
		if err != nil {
			return xerrors.Errorf("failed to unlock stake: %v", err)
		}
	}

	return st.remove(candidatesKey)
}

// AddAuthorities promotes the candidates and proposes the resulting set. The
// current set is left untouched until the rotation completes.
func (s *Service) AddAuthorities(snap store.Snapshot, step execution.Step, ids []access.AccountID) error {
	err := s.add.EnsureOrigin(origin(step))
	if err != nil {
		return err
	}

	st := s.writer(snap)

	err = s.ensureStable(st)
	if err != nil {
		return err
	}

	if len(ids) == 0 {
		return ErrCandidateNE
	}

	candidates, err := st.candidates()
	if err != nil {
		return err
	}

	next, err := st.authorities()
	if err != nil {
		return err
	}

	for _, id := range ids {
		position := types.Find(candidates, string(id))
		if position < 0 {
			return xerrors.Errorf("%s: %w", id, ErrCandidateNE)
		}

		authority := candidates[position]
		authority.Term = step.Block + s.config.TermDuration

		candidates = append(candidates[:position:position], candidates[position+1:]...)

		if len(next) >= s.config.MaxMembers {
			return ErrTooManyMembers
		}

		next = append(next, authority)
	}

	err = st.setCandidates(candidates)
	if err != nil {
		return err
	}

	return s.scheduleAuthoritiesChange(snap, step, next)
}

// RenounceAuthority proposes the current set without the signed origin. The
// term of the authority must have elapsed.
func (s *Service) RenounceAuthority(snap store.Snapshot, step execution.Step) error {
	who, err := access.EnsureSigned(origin(step))
	if err != nil {
		return err
	}

	st := s.writer(snap)

	err = s.ensureStable(st)
	if err != nil {
		return err
	}

	next, err := s.removeAuthorities(st, []access.AccountID{who}, func(a types.RelayAuthority) error {
		if a.Term >= step.Block {
			return ErrAuthorityIT
		}

		return nil
	})
	if err != nil {
		return err
	}

	return s.scheduleAuthoritiesChange(snap, step, next)
}

// RemoveAuthorities proposes the current set without the given authorities.
func (s *Service) RemoveAuthorities(snap store.Snapshot, step execution.Step, ids []access.AccountID) error {
	err := s.remove.EnsureOrigin(origin(step))
	if err != nil {
		return err
	}

	st := s.writer(snap)

	err = s.ensureStable(st)
	if err != nil {
		return err
	}

	next, err := s.removeAuthorities(st, ids, func(types.RelayAuthority) error { return nil })
	if err != nil {
		return err
	}

	return s.scheduleAuthoritiesChange(snap, step, next)
}

// KillAuthorities empties the authority set and wipes the rotation and the
// signing state. Every stake of a current or incoming authority is unlocked,
// and the next aligned block becomes the only schedule.
func (s *Service) KillAuthorities(snap store.Snapshot, step execution.Step) error {
	err := s.reset.EnsureOrigin(origin(step))
	if err != nil {
		return err
	}

	st := s.writer(snap)

	authorities, err := st.authorities()
	if err != nil {
		return err
	}

	next, err := st.nextAuthorities()
	if err != nil {
		return err
	}

	accounts := lo.Map(authorities, func(a types.RelayAuthority, _ int) string { return a.AccountID })
	if next != nil {
		for _, a := range next.NextAuthorities {
			accounts = append(accounts, a.AccountID)
		}
	}

	for _, account := range lo.Uniq(accounts) {
		err = s.currency.RemoveLock(snap, s.config.LockID, access.AccountID(account))
		if err != nil {
			return xerrors.Errorf("failed to unlock stake: %v", err)
		}
	}

	keys, err := st.mmrRootsToSignKeys()
	if err != nil {
		return err
	}

	for _, key := range keys {
		err = st.remove(mmrRootKey(key))
		if err != nil {
			return err
		}
	}

	for _, key := range [][]byte{authoritiesKey, nextAuthoritiesKey, authoritiesToSignKey, submitDurationKey} {
		err = st.remove(key)
		if err != nil {
			return err
		}
	}

	// The schedule is replaced by the next aligned block only, so no
	// MmrRootScheduled event is emitted.
	schedule := step.Block/s.config.ScheduleAlignment*s.config.ScheduleAlignment + s.config.ScheduleAlignment

	err = st.setMmrRootsToSignKeys([]uint64{schedule})
	if err != nil {
		return xerrors.Errorf("failed to schedule %d: %v", schedule, err)
	}

	s.logger.Warn().Uint64("block", step.Block).Msg("authorities killed")

	return nil
}

// ForceNewTerm applies and syncs the pending change without waiting for the
// signatures.
func (s *Service) ForceNewTerm(snap store.Snapshot, step execution.Step) error {
	err := s.reset.EnsureOrigin(origin(step))
	if err != nil {
		return err
	}

	return s.SyncAuthoritiesChange(snap, step)
}

// removeAuthorities returns the current set without the accounts. The check
// is called for every removed authority. Their signatures are withdrawn from
// the open root collections.
func (s *Service) removeAuthorities(st storage, ids []access.AccountID,
	check func(types.RelayAuthority) error) ([]types.RelayAuthority, error) {

	if len(ids) == 0 {
		return nil, ErrAuthorityNE
	}

	authorities, err := st.authorities()
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		position := types.Find(authorities, string(id))
		if position < 0 {
			return nil, xerrors.Errorf("%s: %w", id, ErrAuthorityNE)
		}

		err = check(authorities[position])
		if err != nil {
			return nil, err
		}

		authorities = append(authorities[:position:position], authorities[position+1:]...)
	}

	if len(authorities) == 0 {
		return nil, ErrAuthoritiesCountTL
	}

	keys, err := st.mmrRootsToSignKeys()
	if err != nil {
		return nil, err
	}

	for _, key := range keys {
		toSign, err := st.mmrRootToSign(key)
		if err != nil {
			return nil, err
		}

		if toSign == nil {
			continue
		}

		signatures := lo.Reject(toSign.Signatures, func(sig types.SignedBy, _ int) bool {
			return lo.Contains(ids, access.AccountID(sig.AccountID))
		})

		if len(signatures) == len(toSign.Signatures) {
			continue
		}

		toSign.Signatures = signatures

		err = st.setMmrRootToSign(key, *toSign)
		if err != nil {
			return nil, err
		}
	}

	return authorities, nil
}

// ensureStable returns an error if a rotation is in progress.
func (s *Service) ensureStable(st storage) error {
	next, err := st.nextAuthorities()
	if err != nil {
		return err
	}

	if next != nil {
		return ErrOnAuthoritiesChangeDis
	}

	return nil
}

// minimumStake returns the position of the candidate with the lowest stake.
// The first one wins a tie.
func minimumStake(candidates []types.RelayAuthority) int {
	position := 0

	for i, candidate := range candidates {
		if candidate.Stake < candidates[position].Stake {
			position = i
		}
	}

	return position
}
