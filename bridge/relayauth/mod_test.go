package relayauth

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/relay/bridge/relayauth/types"
	"go.dedis.ch/relay/core/access"
	"go.dedis.ch/relay/core/currency/ledger"
	"go.dedis.ch/relay/core/execution"
	"go.dedis.ch/relay/core/store"
	"go.dedis.ch/relay/core/txn"
	"go.dedis.ch/relay/internal/testing/fake"
)

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	config := DefaultConfig()
	config.Name = ""
	require.EqualError(t, config.Validate(), "name is empty")

	config = DefaultConfig()
	config.MaxMembers = 0
	require.EqualError(t, config.Validate(), "invalid max members: 0")

	config = DefaultConfig()
	config.MaxCandidates = -1
	require.EqualError(t, config.Validate(), "invalid max candidates: -1")

	config = DefaultConfig()
	config.MaxSchedules = 0
	require.EqualError(t, config.Validate(), "invalid max schedules: 0")

	config = DefaultConfig()
	config.SubmitDuration = 0
	require.EqualError(t, config.Validate(), "submit duration is zero")

	config = DefaultConfig()
	config.SubmitDuration = 2
	require.EqualError(t, config.Validate(), "submit duration must be greater than 2: 2")

	config = DefaultConfig()
	config.SignThreshold = types.One + 1
	require.EqualError(t, config.Validate(), "invalid sign threshold: 1000000001")

	config = DefaultConfig()
	config.ScheduleAlignment = 0
	require.EqualError(t, config.Validate(), "schedule alignment is zero")

	config = DefaultConfig()
	config.OpCodes.AuthoritiesChange = config.OpCodes.MmrRoot
	require.EqualError(t, config.Validate(), "op codes must be different")
}

func TestNewService(t *testing.T) {
	deps := makeDeps(&fakeRoots{})

	s, err := NewService(DefaultConfig(), deps)
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), s.GetConfig())

	config := DefaultConfig()
	config.Name = ""
	_, err = NewService(config, deps)
	require.EqualError(t, err, "invalid config: name is empty")

	bad := deps
	bad.Sign = nil
	_, err = NewService(DefaultConfig(), bad)
	require.EqualError(t, err, "missing dependency")

	bad = deps
	bad.ResetOrigin = nil
	_, err = NewService(DefaultConfig(), bad)
	require.EqualError(t, err, "missing origin predicate")
}

func TestService_InitGenesis(t *testing.T) {
	e := newEnv(t, DefaultConfig(), "alice", "bob")

	authorities, err := e.service.GetAuthorities(e.snap)
	require.NoError(t, err)
	require.Len(t, authorities, 2)
	require.Equal(t, "alice", authorities[0].AccountID)
	require.Equal(t, []byte("s-alice"), authorities[0].Signer)
	require.Equal(t, uint64(100), authorities[0].Stake)
	require.Equal(t, e.service.config.TermDuration, authorities[0].Term)

	e.requireLocks("alice", "bob")

	err = e.service.InitGenesis(e.snap, e.step(access.None()), []GenesisAuthority{
		{Account: "carol", Stake: 1},
		{Account: "carol", Stake: 1},
	})
	require.EqualError(t, err, "duplicate genesis authority carol: authority already exists")

	genesis := make([]GenesisAuthority, e.service.config.MaxMembers+1)
	err = e.service.InitGenesis(e.snap, e.step(access.None()), genesis)
	require.ErrorIs(t, err, ErrTooManyMembers)
}

func TestService_Getters(t *testing.T) {
	e := newEnv(t, DefaultConfig(), "alice")

	candidates, err := e.service.GetCandidates(e.snap)
	require.NoError(t, err)
	require.Empty(t, candidates)

	next, err := e.service.GetNextAuthorities(e.snap)
	require.NoError(t, err)
	require.Nil(t, next)

	term, err := e.service.GetNextTerm(e.snap)
	require.NoError(t, err)
	require.Equal(t, uint32(0), term)

	toSign, err := e.service.GetAuthoritiesToSign(e.snap)
	require.NoError(t, err)
	require.Nil(t, toSign)

	keys, err := e.service.GetMmrRootsToSignKeys(e.snap)
	require.NoError(t, err)
	require.Empty(t, keys)

	duration, err := e.service.GetSubmitDuration(e.snap)
	require.NoError(t, err)
	require.Equal(t, e.service.config.SubmitDuration, duration)

	_, err = e.service.GetAuthorities(fake.NewBadSnapshot())
	require.EqualError(t, err, "failed to read authorities: fake error")

	bad := fake.NewSnapshot()
	require.NoError(t, e.service.writer(bad).w.Set(authoritiesKey, []byte{0x04}))

	_, err = e.service.GetAuthorities(bad)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid authorities: ")
}

func TestService_Instances(t *testing.T) {
	e := newEnv(t, DefaultConfig(), "alice")

	config := DefaultConfig()
	config.Name = "other"
	config.LockID[0]++

	other, err := NewService(config, makeDeps(e.roots))
	require.NoError(t, err)

	authorities, err := other.GetAuthorities(e.snap)
	require.NoError(t, err)
	require.Empty(t, authorities)
}

func TestService_Metrics(t *testing.T) {
	config := DefaultConfig()
	config.Name = "metrics"

	e := newEnv(t, config, "alice", "bob")
	e.request("carol", 50)

	e.next()

	require.Equal(t, 2.0, testutil.ToFloat64(e.service.metrics.authorities))
	require.Equal(t, 1.0, testutil.ToFloat64(e.service.metrics.candidates))
	require.Equal(t, 0.0, testutil.ToFloat64(e.service.metrics.pending))

	require.NoError(t, e.service.AddAuthorities(e.snap, e.step(access.Root()), []access.AccountID{"carol"}))
	require.NoError(t, e.service.ScheduleMmrRoot(e.snap, e.step(access.None()), 10))

	e.next()

	require.Equal(t, 0.0, testutil.ToFloat64(e.service.metrics.candidates))
	require.Equal(t, 1.0, testutil.ToFloat64(e.service.metrics.pending))
	require.Equal(t, 1.0, testutil.ToFloat64(e.service.metrics.schedules))
}

// -----------------------------------------------------------------------------
// Utility functions

const initialBalance = 1000

// env is a chain of one relay instance on a fake snapshot. Every genesis
// authority has a balance of 1000 and a stake of 100.
type env struct {
	t       *testing.T
	snap    *fake.InMemorySnapshot
	service *Service
	ledger  ledger.Ledger
	roots   *fakeRoots
	events  *execution.Events
	block   uint64
}

func newEnv(t *testing.T, config Config, genesis ...access.AccountID) *env {
	e := &env{
		t:      t,
		snap:   fake.NewSnapshot(),
		ledger: ledger.NewLedger(),
		roots:  &fakeRoots{root: []byte{0xaa, 0xbb}},
		events: execution.NewEvents(0),
	}

	service, err := NewService(config, makeDeps(e.roots))
	require.NoError(t, err)

	e.service = service

	authorities := make([]GenesisAuthority, len(genesis))
	for i, account := range genesis {
		e.mint(account)

		authorities[i] = GenesisAuthority{
			Account: account,
			Signer:  signerOf(account),
			Stake:   100,
		}
	}

	require.NoError(t, service.InitGenesis(e.snap, e.step(access.None()), authorities))

	return e
}

func (e *env) step(o access.Origin) execution.Step {
	return execution.Step{
		Block:   e.block,
		Current: txn.NewCall(o),
		Events:  e.events,
	}
}

func (e *env) mint(account access.AccountID) {
	require.NoError(e.t, e.ledger.Mint(e.snap, account, initialBalance))
}

func (e *env) request(account access.AccountID, stake uint64) {
	e.mint(account)

	err := e.service.RequestAuthority(e.snap, e.step(access.Signed(account)), stake, signerOf(account))
	require.NoError(e.t, err)
}

// next moves to the next block and runs the block hook.
func (e *env) next() {
	e.block++
	e.service.OnInitialize(e.snap, execution.Step{Block: e.block, Events: e.events})
}

func (e *env) moveTo(block uint64) {
	for e.block < block {
		e.next()
	}
}

func (e *env) signAuthorities(account access.AccountID) error {
	toSign, err := e.service.GetAuthoritiesToSign(e.snap)
	require.NoError(e.t, err)
	require.NotNil(e.t, toSign)

	signature := sign(signerOf(account), toSign.Message)

	return e.service.SubmitSignedAuthorities(e.snap, e.step(access.Signed(account)), signature)
}

func (e *env) signMmrRoot(account access.AccountID, block uint64) error {
	message, err := e.service.MmrRootMessage(block, e.roots.root)
	require.NoError(e.t, err)

	signature := sign(signerOf(account), message)

	return e.service.SubmitSignedMmrRoot(e.snap, e.step(access.Signed(account)), block, signature)
}

func (e *env) locked(account access.AccountID) uint64 {
	amount, err := e.ledger.Locked(e.snap, e.service.config.LockID, account)
	require.NoError(e.t, err)

	return amount
}

func (e *env) free(account access.AccountID) uint64 {
	amount, err := e.ledger.FreeBalance(e.snap, account)
	require.NoError(e.t, err)

	return amount
}

func (e *env) authorities() []access.AccountID {
	authorities, err := e.service.GetAuthorities(e.snap)
	require.NoError(e.t, err)

	return accountsOf(authorities)
}

func (e *env) eventsOf(sample interface{}) []interface{} {
	var res []interface{}

	for _, event := range e.events.GetEvents(e.service.config.Name) {
		if sameType(event, sample) {
			res = append(res, event)
		}
	}

	return res
}

// requireLocks verifies that the lock of each account is the stake it has in
// the pool, the current set or the pending set, and that an account appears
// in one of them only.
func (e *env) requireLocks(accounts ...access.AccountID) {
	candidates, err := e.service.GetCandidates(e.snap)
	require.NoError(e.t, err)

	authorities, err := e.service.GetAuthorities(e.snap)
	require.NoError(e.t, err)

	next, err := e.service.GetNextAuthorities(e.snap)
	require.NoError(e.t, err)

	expected := map[access.AccountID]uint64{}

	for _, authority := range authorities {
		expected[access.AccountID(authority.AccountID)] = authority.Stake
	}

	if next != nil {
		for _, authority := range next.NextAuthorities {
			require.Negative(e.t, types.Find(candidates, authority.AccountID))

			if types.Find(authorities, authority.AccountID) < 0 {
				expected[access.AccountID(authority.AccountID)] = authority.Stake
			}
		}
	}

	for _, candidate := range candidates {
		require.Negative(e.t, types.Find(authorities, candidate.AccountID))
		expected[access.AccountID(candidate.AccountID)] = candidate.Stake
	}

	for _, account := range accounts {
		require.Equal(e.t, expected[account], e.locked(account), "lock of %s", account)
	}
}

func makeDeps(roots *fakeRoots) Dependencies {
	return Dependencies{
		Sign:         fakeSign{},
		Roots:        roots,
		Currency:     ledger.NewLedger(),
		AddOrigin:    access.EnsureRoot(),
		RemoveOrigin: access.EnsureAny(access.EnsureRoot(), access.EnsureMembers("council")),
		ResetOrigin:  access.EnsureRoot(),
	}
}

func signerOf(account access.AccountID) []byte {
	return []byte("s-" + account)
}

func sign(signer, message []byte) []byte {
	return append(append([]byte{}, signer...), message...)
}

func accountsOf(authorities []types.RelayAuthority) []access.AccountID {
	accounts := make([]access.AccountID, len(authorities))
	for i, authority := range authorities {
		accounts[i] = access.AccountID(authority.AccountID)
	}

	return accounts
}

func sameType(a, b interface{}) bool {
	return reflect.TypeOf(a) == reflect.TypeOf(b)
}

// fakeSign hashes by prefixing the payload, and accepts the signature that is
// the signer followed by the message.
type fakeSign struct{}

func (fakeSign) Hash(payload []byte) []byte {
	return append([]byte("hash:"), payload...)
}

func (fakeSign) VerifySignature(signature, message, signer []byte) bool {
	return bytes.Equal(signature, sign(signer, message))
}

type fakeRoots struct {
	root []byte
}

func (r *fakeRoots) GetRoot(store.Readable) []byte {
	return r.root
}
