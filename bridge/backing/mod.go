// Package backing implements the account that backs the assets bridged to an
// external chain.
//
// Locking funds in the backing account schedules the signing of an
// accumulator root by the relay authorities. The relayers that bring back the
// proof that the external chain applied an authorities change sync the change
// and get a reward.
package backing

import (
	"github.com/rs/zerolog"
	"go.dedis.ch/relay"
	"go.dedis.ch/relay/bridge/relayauth"
	"go.dedis.ch/relay/core/access"
	"go.dedis.ch/relay/core/currency"
	"go.dedis.ch/relay/core/execution"
	"go.dedis.ch/relay/core/store"
	"go.dedis.ch/relay/core/store/prefixed"
	"golang.org/x/xerrors"
)

var (
	// ErrAuthoritiesChangeAR is returned when the proof of a change has
	// already been used.
	ErrAuthoritiesChangeAR = xerrors.New("authorities change already synced")

	// ErrLockLim is returned when an amount reaches the lock limit.
	ErrLockLim = xerrors.New("lock limit reached")
)

// Locked is emitted when funds are moved to the backing account.
type Locked struct {
	Account   access.AccountID
	Recipient []byte
	Amount    uint64
}

// AuthoritiesChangeSynced is emitted when the proof of a change is verified.
type AuthoritiesChangeSynced struct {
	Term        uint32
	Beneficiary access.AccountID
}

// Receipt is the content of a verified proof of an authorities change on the
// external chain.
type Receipt struct {
	// Index identifies the proof.
	Index []byte

	Term        uint32
	Signers     [][]byte
	Beneficiary access.AccountID
}

// Verifier is the interface of the light client of the external chain.
type Verifier interface {
	// VerifyReceipt returns the receipt of the proof if it is valid.
	VerifyReceipt(snap store.Readable, proof []byte) (Receipt, error)
}

// Config is the configuration of the backing.
type Config struct {
	// Name namespaces the storage and is the source of the events.
	Name string `yaml:"name"`

	// Account holds the locked funds.
	Account access.AccountID `yaml:"account"`

	// FeeAccount pays the sync rewards.
	FeeAccount access.AccountID `yaml:"fee_account"`

	// LockLimit is the exclusive upper bound of a lock.
	LockLimit uint64 `yaml:"lock_limit"`

	SyncReward uint64 `yaml:"sync_reward"`

	// Alignment is the interval of the scheduled blocks.
	Alignment uint64 `yaml:"alignment"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Name:       "backing",
		Account:    "backing",
		FeeAccount: "backing-fee",
		LockLimit:  10_000_000,
		SyncReward: 1_000,
		Alignment:  10,
	}
}

// Dependencies are the collaborators of the backing.
type Dependencies struct {
	Currency    currency.Currency
	Authorities relayauth.Protocol
	Verifier    Verifier
}

// Service is the backing of an external chain.
type Service struct {
	config      Config
	currency    currency.Currency
	authorities relayauth.Protocol
	verifier    Verifier
	logger      zerolog.Logger
}

// NewService creates a new backing.
func NewService(config Config, deps Dependencies) (*Service, error) {
	if config.Name == "" || config.Account == "" {
		return nil, xerrors.New("missing name or account")
	}

	if config.Alignment == 0 {
		return nil, xerrors.New("alignment is zero")
	}

	if deps.Currency == nil || deps.Authorities == nil || deps.Verifier == nil {
		return nil, xerrors.New("missing dependency")
	}

	s := &Service{
		config:      config,
		currency:    deps.Currency,
		authorities: deps.Authorities,
		verifier:    deps.Verifier,
		logger:      relay.Logger.With().Str("backing", config.Name).Logger(),
	}

	return s, nil
}

// Lock moves the amount from the signed origin to the backing account for the
// recipient on the external chain, and schedules the next aligned block so
// that the relay authorities sign a root that includes it.
func (s *Service) Lock(snap store.Snapshot, step execution.Step, amount uint64, recipient []byte) error {
	who, err := access.EnsureSigned(origin(step))
	if err != nil {
		return err
	}

	if amount == 0 {
		return nil
	}

	if amount >= s.config.LockLimit {
		return ErrLockLim
	}

	err = s.currency.Transfer(snap, who, s.config.Account, amount)
	if err != nil {
		return xerrors.Errorf("failed to transfer: %w", err)
	}

	step.Emit(s.config.Name, Locked{Account: who, Recipient: recipient, Amount: amount})

	block := step.Block/s.config.Alignment*s.config.Alignment + s.config.Alignment

	err = s.authorities.ScheduleMmrRoot(snap, step, block)
	if err != nil {
		return xerrors.Errorf("failed to schedule %d: %w", block, err)
	}

	s.logger.Info().Str("account", string(who)).Uint64("amount", amount).
		Uint64("schedule", block).Msg("locked")

	return nil
}

// SyncAuthoritiesChange verifies the proof that the external chain applied
// the pending authorities change and syncs it. A proof is accepted once. The
// beneficiary of the proof is rewarded, and a failure to pay does not revert
// the sync.
func (s *Service) SyncAuthoritiesChange(snap store.Snapshot, step execution.Step, proof []byte) error {
	_, err := access.EnsureSigned(origin(step))
	if err != nil {
		return err
	}

	receipt, err := s.verifier.VerifyReceipt(snap, proof)
	if err != nil {
		return xerrors.Errorf("invalid proof: %v", err)
	}

	verified := prefixed.NewSnapshot(s.config.Name, snap)

	key := verifiedKey(receipt.Index)

	value, err := verified.Get(key)
	if err != nil {
		return xerrors.Errorf("failed to read proof: %v", err)
	}

	if len(value) > 0 {
		return ErrAuthoritiesChangeAR
	}

	err = s.authorities.CheckAuthoritiesChangeToSync(snap, receipt.Term, receipt.Signers)
	if err != nil {
		return err
	}

	err = s.authorities.SyncAuthoritiesChange(snap, step)
	if err != nil {
		return err
	}

	err = verified.Set(key, []byte{1})
	if err != nil {
		return xerrors.Errorf("failed to write proof: %v", err)
	}

	step.Emit(s.config.Name, AuthoritiesChangeSynced{
		Term:        receipt.Term,
		Beneficiary: receipt.Beneficiary,
	})

	err = s.currency.Transfer(snap, s.config.FeeAccount, receipt.Beneficiary, s.config.SyncReward)
	if err != nil {
		s.logger.Warn().Err(err).Str("beneficiary", string(receipt.Beneficiary)).
			Msg("sync reward not paid")
	}

	return nil
}

// IsVerified returns true if the proof of the index has been used.
func (s *Service) IsVerified(snap store.Readable, index []byte) (bool, error) {
	value, err := prefixed.NewReadable(s.config.Name, snap).Get(verifiedKey(index))
	if err != nil {
		return false, xerrors.Errorf("failed to read proof: %v", err)
	}

	return len(value) > 0, nil
}

func verifiedKey(index []byte) []byte {
	return append([]byte("verified:"), index...)
}

func origin(step execution.Step) access.Origin {
	if step.Current == nil {
		return access.None()
	}

	return step.Current.GetOrigin()
}
