// Package relayauth implements the relay authorities of a bridge.
//
// The relay authorities are a bounded committee of staked accounts that sign
// messages for an external chain: the accumulator root of scheduled blocks and
// the changes of the committee itself. An account first requests to become a
// candidate by locking a stake, and is then promoted by the add origin. Every
// change of the committee is a rotation that must be signed by a threshold of
// the current authorities before the new set replaces the old one.
//
// Each block, the service opens the signing of the roots that became available
// and slashes the authorities that missed a deadline. Signing obligations are
// reserved to the rotation while one is in progress.
//
// All the operations take the snapshot of the current transaction and write in
// it only when they succeed. Several instances can share the same snapshot as
// long as they have different names.
package relayauth

import (
	"github.com/rs/zerolog"
	"go.dedis.ch/relay"
	"go.dedis.ch/relay/bridge/mmr"
	"go.dedis.ch/relay/bridge/relayauth/types"
	"go.dedis.ch/relay/core/access"
	"go.dedis.ch/relay/core/currency"
	"go.dedis.ch/relay/core/execution"
	"go.dedis.ch/relay/core/store"
	"go.dedis.ch/relay/crypto"
	"golang.org/x/xerrors"
)

// Config is the configuration of an instance of the relay authorities.
type Config struct {
	// Name identifies the instance. It namespaces the storage and is the
	// source of the events.
	Name string `yaml:"name"`

	// RuntimeName is the first field of every signed message.
	RuntimeName string `yaml:"runtime_name"`

	// OpCodes are the operation codes of the signed messages.
	OpCodes types.OpCodes `yaml:"-"`

	// LockID is the name of the lock of the stakes.
	LockID currency.LockID `yaml:"-"`

	// MaxMembers bounds the authority set and the signature collections.
	MaxMembers int `yaml:"max_members"`

	// MaxCandidates bounds the candidate pool.
	MaxCandidates int `yaml:"max_candidates"`

	// MaxSchedules bounds the number of scheduled roots.
	MaxSchedules int `yaml:"max_schedules"`

	// TermDuration is the number of blocks an authority serves before it can
	// renounce.
	TermDuration uint64 `yaml:"term_duration"`

	// SubmitDuration is the number of blocks the authorities have to submit
	// their signature.
	SubmitDuration uint64 `yaml:"submit_duration"`

	// SignThreshold is the ratio of the authorities that must sign.
	SignThreshold types.Perbill `yaml:"sign_threshold"`

	// ScheduleAlignment is the interval of the block that is scheduled after
	// the authorities have been killed.
	ScheduleAlignment uint64 `yaml:"schedule_alignment"`

	// DeferSync keeps the rotation pending after the quorum until a
	// collaborator syncs the change confirmed by the external chain.
	DeferSync bool `yaml:"defer_sync"`
}

// DefaultConfig returns the default configuration of an instance.
func DefaultConfig() Config {
	return Config{
		Name:        "relay-authority",
		RuntimeName: "relay",
		OpCodes: types.OpCodes{
			MmrRoot:           types.OpCode{71, 159, 189, 249},
			AuthoritiesChange: types.OpCode{180, 188, 244, 151},
		},
		LockID:            currency.NewLockID("ethrauth"),
		MaxMembers:        7,
		MaxCandidates:     7,
		MaxSchedules:      10,
		TermDuration:      10,
		SubmitDuration:    3,
		SignThreshold:     types.FromPercent(60),
		ScheduleAlignment: 10,
	}
}

// Validate returns an error if the configuration cannot be used.
func (c Config) Validate() error {
	if c.Name == "" {
		return xerrors.New("name is empty")
	}

	if c.MaxMembers <= 0 {
		return xerrors.Errorf("invalid max members: %d", c.MaxMembers)
	}

	if c.MaxCandidates <= 0 {
		return xerrors.Errorf("invalid max candidates: %d", c.MaxCandidates)
	}

	if c.MaxSchedules <= 0 {
		return xerrors.Errorf("invalid max schedules: %d", c.MaxSchedules)
	}

	if c.SubmitDuration == 0 {
		return xerrors.New("submit duration is zero")
	}

	// A root is opened rootDelay blocks after its schedule and must stay open
	// for at least one block.
	if c.SubmitDuration <= rootDelay {
		return xerrors.Errorf("submit duration must be greater than %d: %d",
			rootDelay, c.SubmitDuration)
	}

	if c.SignThreshold == 0 || c.SignThreshold > types.One {
		return xerrors.Errorf("invalid sign threshold: %d", c.SignThreshold)
	}

	if c.ScheduleAlignment == 0 {
		return xerrors.New("schedule alignment is zero")
	}

	if c.OpCodes.MmrRoot == c.OpCodes.AuthoritiesChange {
		return xerrors.New("op codes must be different")
	}

	return nil
}

// Dependencies are the collaborators of the relay authorities.
type Dependencies struct {
	Sign     crypto.Sign
	Roots    mmr.RootSource
	Currency currency.Currency

	// AddOrigin authorizes the promotion of candidates.
	AddOrigin access.Predicate

	// RemoveOrigin authorizes the removal of authorities.
	RemoveOrigin access.Predicate

	// ResetOrigin authorizes the administrative resets.
	ResetOrigin access.Predicate
}

// GenesisAuthority is an authority of the initial set.
type GenesisAuthority struct {
	Account access.AccountID `yaml:"account"`
	Signer  []byte           `yaml:"-"`
	Stake   uint64           `yaml:"stake"`
}

// Service is an instance of the relay authorities.
//
// - implements relayauth.Protocol
// - implements chain.Hook
type Service struct {
	config   Config
	sign     crypto.Sign
	roots    mmr.RootSource
	currency currency.Currency
	add      access.Predicate
	remove   access.Predicate
	reset    access.Predicate
	logger   zerolog.Logger
	metrics  metrics
}

// NewService creates a new instance of the relay authorities.
func NewService(config Config, deps Dependencies) (*Service, error) {
	err := config.Validate()
	if err != nil {
		return nil, xerrors.Errorf("invalid config: %v", err)
	}

	if deps.Sign == nil || deps.Roots == nil || deps.Currency == nil {
		return nil, xerrors.New("missing dependency")
	}

	if deps.AddOrigin == nil || deps.RemoveOrigin == nil || deps.ResetOrigin == nil {
		return nil, xerrors.New("missing origin predicate")
	}

	s := &Service{
		config:   config,
		sign:     deps.Sign,
		roots:    deps.Roots,
		currency: deps.Currency,
		add:      deps.AddOrigin,
		remove:   deps.RemoveOrigin,
		reset:    deps.ResetOrigin,
		logger:   relay.Logger.With().Str("instance", config.Name).Logger(),
		metrics:  newMetrics(config.Name),
	}

	return s, nil
}

// GetConfig returns the configuration of the instance.
func (s *Service) GetConfig() Config {
	return s.config
}

// InitGenesis writes the initial authority set. The stakes are locked and the
// term of every authority ends after the term duration.
func (s *Service) InitGenesis(snap store.Snapshot, step execution.Step, genesis []GenesisAuthority) error {
	if len(genesis) > s.config.MaxMembers {
		return xerrors.Errorf("genesis authorities overflowed: %w", ErrTooManyMembers)
	}

	st := s.writer(snap)

	authorities := make([]types.RelayAuthority, 0, len(genesis))

	for _, g := range genesis {
		if types.Find(authorities, string(g.Account)) >= 0 {
			return xerrors.Errorf("duplicate genesis authority %s: %w", g.Account, ErrAuthorityAE)
		}

		authorities = append(authorities, types.RelayAuthority{
			AccountID: string(g.Account),
			Signer:    g.Signer,
			Stake:     g.Stake,
			Term:      step.Block + s.config.TermDuration,
		})
	}

	for _, authority := range authorities {
		err := s.currency.SetLock(snap, s.config.LockID, access.AccountID(authority.AccountID), authority.Stake)
		if err != nil {
			return xerrors.Errorf("failed to lock stake: %v", err)
		}
	}

	return st.setAuthorities(authorities)
}

// OnInitialize implements chain.Hook. It opens the signing of the roots that
// became available, and then looks for missed deadlines.
func (s *Service) OnInitialize(snap store.Snapshot, step execution.Step) {
	s.prepareMmrRootToSign(snap, step.Block)
	s.checkMisbehavior(snap, step)

	s.metrics.refresh(s.reader(snap), s.logger)
}

// GetCandidates returns the candidate pool.
func (s *Service) GetCandidates(snap store.Readable) ([]types.RelayAuthority, error) {
	return s.reader(snap).candidates()
}

// GetAuthorities returns the current authority set.
func (s *Service) GetAuthorities(snap store.Readable) ([]types.RelayAuthority, error) {
	return s.reader(snap).authorities()
}

// GetNextAuthorities returns the pending change, or nil if there is none.
func (s *Service) GetNextAuthorities(snap store.Readable) (*types.ScheduledAuthoritiesChange, error) {
	return s.reader(snap).nextAuthorities()
}

// GetNextTerm returns the term of the next change.
func (s *Service) GetNextTerm(snap store.Readable) (uint32, error) {
	return s.reader(snap).nextTerm()
}

// GetAuthoritiesToSign returns the open collection of the pending change, or
// nil if there is none.
func (s *Service) GetAuthoritiesToSign(snap store.Readable) (*types.AuthoritiesToSign, error) {
	return s.reader(snap).authoritiesToSign()
}

// GetMmrRootsToSignKeys returns the scheduled blocks in ascending order.
func (s *Service) GetMmrRootsToSignKeys(snap store.Readable) ([]uint64, error) {
	return s.reader(snap).mmrRootsToSignKeys()
}

// GetMmrRootToSign returns the open collection of the block, or nil if there
// is none.
func (s *Service) GetMmrRootToSign(snap store.Readable, block uint64) (*types.MmrRootToSign, error) {
	return s.reader(snap).mmrRootToSign(block)
}

// GetSubmitDuration returns the current deadline window.
func (s *Service) GetSubmitDuration(snap store.Readable) (uint64, error) {
	return s.reader(snap).submitDuration(s.config.SubmitDuration)
}

func (s *Service) emit(step execution.Step, event interface{}) {
	step.Emit(s.config.Name, event)
}

func origin(step execution.Step) access.Origin {
	if step.Current == nil {
		return access.None()
	}

	return step.Current.GetOrigin()
}
