package relayauth

import (
	"sort"

	"go.dedis.ch/relay/bridge/relayauth/types"
	"go.dedis.ch/relay/core/access"
	"go.dedis.ch/relay/core/execution"
	"go.dedis.ch/relay/core/store"
	"golang.org/x/xerrors"
)

// rootDelay is the number of blocks after which the root of a block can be
// read: the root does not contain the header of its own block and it changes
// when the block is finalized.
const rootDelay = 2

// ScheduleMmrRoot implements relayauth.Protocol. It fails if the schedule is
// full, even if the block is already scheduled.
func (s *Service) ScheduleMmrRoot(snap store.Snapshot, step execution.Step, block uint64) error {
	st := s.writer(snap)

	keys, err := st.mmrRootsToSignKeys()
	if err != nil {
		return err
	}

	if len(keys) >= s.config.MaxSchedules {
		return ErrTooManySchedules
	}

	position := sort.Search(len(keys), func(i int) bool { return keys[i] >= block })
	if position < len(keys) && keys[position] == block {
		return nil
	}

	keys = append(keys, 0)
	copy(keys[position+1:], keys[position:])
	keys[position] = block

	err = st.setMmrRootsToSignKeys(keys)
	if err != nil {
		return err
	}

	s.emit(step, MmrRootScheduled{Block: block})

	s.logger.Debug().Uint64("block", block).Msg("mmr root scheduled")

	return nil
}

// SubmitSignedMmrRoot records the signature of the root of the block by the
// signed origin. It is disallowed during a rotation. A signature already
// recorded for the account is ignored. When the threshold is reached, the
// collection and the schedule of the block are removed.
func (s *Service) SubmitSignedMmrRoot(snap store.Snapshot, step execution.Step, block uint64, signature []byte) error {
	who, err := access.EnsureSigned(origin(step))
	if err != nil {
		return err
	}

	st := s.writer(snap)

	err = s.ensureStable(st)
	if err != nil {
		return err
	}

	toSign, err := st.mmrRootToSign(block)
	if err != nil {
		return err
	}

	if toSign == nil {
		return ErrScheduledSignNE
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

	message, err := s.MmrRootMessage(block, toSign.MmrRoot)
	if err != nil {
		return err
	}

	if !s.sign.VerifySignature(signature, message, authorities[position].Signer) {
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
		err = st.setMmrRootToSign(block, *toSign)
		if err != nil {
			return err
		}

		s.metrics.signatures.WithLabelValues("mmr_root").Inc()

		return nil
	}

	err = s.closeMmrRoot(st, block)
	if err != nil {
		return err
	}

	s.metrics.signatures.WithLabelValues("mmr_root").Inc()

	s.emit(step, MmrRootSigned{
		Block:      block,
		MmrRoot:    toSign.MmrRoot,
		Signatures: toSign.Signatures,
	})

	s.logger.Info().Uint64("block", block).Int("signatures", len(toSign.Signatures)).
		Msg("mmr root signed")

	return nil
}

// MmrRootMessage returns the message that the authorities sign for the root
// of the block.
func (s *Service) MmrRootMessage(block uint64, root []byte) ([]byte, error) {
	payload, err := types.MmrRootPayload(s.config.RuntimeName, s.config.OpCodes.MmrRoot, block, root)
	if err != nil {
		return nil, xerrors.Errorf("failed to make message: %v", err)
	}

	return s.sign.Hash(payload), nil
}

// prepareMmrRootToSign opens the collection of the block scheduled two blocks
// before now, if its root is available and the collection does not exist yet.
func (s *Service) prepareMmrRootToSign(snap store.Snapshot, now uint64) {
	if now < rootDelay {
		return
	}

	st := s.writer(snap)

	keys, err := st.mmrRootsToSignKeys()
	if err != nil {
		s.logger.Err(err).Msg("failed to read schedule")
		return
	}

	for _, key := range keys {
		if key+rootDelay != now {
			continue
		}

		root := s.roots.GetRoot(snap)
		if root == nil {
			s.logger.Error().Uint64("schedule", key).Uint64("block", now).
				Msg("failed to get root")
			continue
		}

		toSign, err := st.mmrRootToSign(key)
		if err != nil {
			s.logger.Err(err).Uint64("schedule", key).Msg("failed to read mmr root to sign")
			continue
		}

		if toSign != nil {
			continue
		}

		err = st.setMmrRootToSign(key, types.MmrRootToSign{MmrRoot: root})
		if err != nil {
			s.logger.Err(err).Uint64("schedule", key).Msg("failed to open mmr root to sign")
			continue
		}

		s.logger.Debug().Uint64("schedule", key).Hex("root", root).Msg("mmr root to sign")
	}
}

// closeMmrRoot removes the collection and the schedule of the block.
func (s *Service) closeMmrRoot(st storage, block uint64) error {
	err := st.remove(mmrRootKey(block))
	if err != nil {
		return err
	}

	keys, err := st.mmrRootsToSignKeys()
	if err != nil {
		return err
	}

	position := sort.Search(len(keys), func(i int) bool { return keys[i] >= block })
	if position == len(keys) || keys[position] != block {
		s.logger.Warn().Uint64("block", block).Msg("schedule not found")
		return nil
	}

	keys = append(keys[:position], keys[position+1:]...)

	return st.setMmrRootsToSignKeys(keys)
}
