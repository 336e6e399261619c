package relayauth

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/relay/bridge/relayauth/types"
	"go.dedis.ch/relay/core/access"
	"go.dedis.ch/relay/testing/fake"
	"golang.org/x/xerrors"
)

func TestService_ScheduleMmrRoot(t *testing.T) {
	config := DefaultConfig()
	config.MaxSchedules = 3

	e := newEnv(t, config, "alice")

	require.NoError(t, e.service.ScheduleMmrRoot(e.snap, e.step(access.None()), 20))
	require.NoError(t, e.service.ScheduleMmrRoot(e.snap, e.step(access.None()), 10))

	// A block already scheduled is a no-op.
	require.NoError(t, e.service.ScheduleMmrRoot(e.snap, e.step(access.None()), 20))

	require.NoError(t, e.service.ScheduleMmrRoot(e.snap, e.step(access.None()), 15))

	keys, err := e.service.GetMmrRootsToSignKeys(e.snap)
	require.NoError(t, err)
	require.Equal(t, []uint64{10, 15, 20}, keys)

	require.Equal(t, []interface{}{
		MmrRootScheduled{Block: 20},
		MmrRootScheduled{Block: 10},
		MmrRootScheduled{Block: 15},
	}, e.eventsOf(MmrRootScheduled{}))

	err = e.service.ScheduleMmrRoot(e.snap, e.step(access.None()), 30)
	require.ErrorIs(t, err, ErrTooManySchedules)

	// The fullness is checked first.
	err = e.service.ScheduleMmrRoot(e.snap, e.step(access.None()), 10)
	require.ErrorIs(t, err, ErrTooManySchedules)
}

func TestService_PrepareMmrRootToSign(t *testing.T) {
	e := newEnv(t, DefaultConfig(), "alice", "bob", "carol")

	require.NoError(t, e.service.ScheduleMmrRoot(e.snap, e.step(access.None()), 5))

	e.moveTo(6)

	toSign, err := e.service.GetMmrRootToSign(e.snap, 5)
	require.NoError(t, err)
	require.Nil(t, toSign)

	e.next()

	toSign, err = e.service.GetMmrRootToSign(e.snap, 5)
	require.NoError(t, err)
	require.Equal(t, e.roots.root, toSign.MmrRoot)
	require.Empty(t, toSign.Signatures)

	// The collection is not reset when the root changes afterwards.
	e.roots.root = []byte{0xcc}
	e.service.prepareMmrRootToSign(e.snap, 7)

	toSign, err = e.service.GetMmrRootToSign(e.snap, 5)
	require.NoError(t, err)
	require.Equal(t, []byte{0xaa, 0xbb}, toSign.MmrRoot)
}

func TestService_PrepareMmrRootToSign_NoRoot(t *testing.T) {
	e := newEnv(t, DefaultConfig(), "alice")

	logger, check := fake.CheckLog("failed to get root")
	e.service.logger = logger

	e.roots.root = nil
	require.NoError(t, e.service.ScheduleMmrRoot(e.snap, e.step(access.None()), 1))

	e.moveTo(3)

	check(t)

	toSign, err := e.service.GetMmrRootToSign(e.snap, 1)
	require.NoError(t, err)
	require.Nil(t, toSign)
}

func TestService_SubmitSignedMmrRoot(t *testing.T) {
	e := newEnv(t, DefaultConfig(), "alice", "bob", "carol")

	require.NoError(t, e.service.ScheduleMmrRoot(e.snap, e.step(access.None()), 5))
	require.NoError(t, e.service.ScheduleMmrRoot(e.snap, e.step(access.None()), 6))

	err := e.signMmrRoot("alice", 5)
	require.ErrorIs(t, err, ErrScheduledSignNE)

	e.moveTo(7)

	e.mint("dave")
	err = e.signMmrRoot("dave", 5)
	require.ErrorIs(t, err, ErrAuthorityNE)

	err = e.service.SubmitSignedMmrRoot(e.snap, e.step(access.Signed("alice")), 5, []byte("bad"))
	require.ErrorIs(t, err, ErrSignatureInv)

	err = e.service.SubmitSignedMmrRoot(e.snap, e.step(access.None()), 5, nil)
	require.ErrorIs(t, err, access.ErrBadOrigin)

	require.NoError(t, e.signMmrRoot("alice", 5))
	require.NoError(t, e.signMmrRoot("alice", 5))

	toSign, err := e.service.GetMmrRootToSign(e.snap, 5)
	require.NoError(t, err)
	require.Len(t, toSign.Signatures, 1)

	require.NoError(t, e.signMmrRoot("carol", 5))

	toSign, err = e.service.GetMmrRootToSign(e.snap, 5)
	require.NoError(t, err)
	require.Nil(t, toSign)

	keys, err := e.service.GetMmrRootsToSignKeys(e.snap)
	require.NoError(t, err)
	require.Equal(t, []uint64{6}, keys)

	events := e.eventsOf(MmrRootSigned{})
	require.Len(t, events, 1)

	signed := events[0].(MmrRootSigned)
	require.Equal(t, uint64(5), signed.Block)
	require.Equal(t, e.roots.root, signed.MmrRoot)
	require.Equal(t, []access.AccountID{"alice", "carol"}, signersOf(signed.Signatures))
}

func TestService_SubmitSignedMmrRoot_WriteFailure(t *testing.T) {
	config := DefaultConfig()
	config.Name = "mmr-write-failure"

	e := newEnv(t, config, "alice", "bob", "carol")

	require.NoError(t, e.service.ScheduleMmrRoot(e.snap, e.step(access.None()), 5))
	e.moveTo(7)

	counter := e.service.metrics.signatures.WithLabelValues("mmr_root")

	e.snap.ErrWrite = xerrors.New("oops")

	err := e.signMmrRoot("alice", 5)
	require.Error(t, err)
	require.Contains(t, err.Error(), "oops")
	require.Equal(t, 0.0, testutil.ToFloat64(counter))

	e.snap.ErrWrite = nil

	require.NoError(t, e.signMmrRoot("alice", 5))
	require.Equal(t, 1.0, testutil.ToFloat64(counter))
}

func TestService_SubmitSignedMmrRoot_Rotation(t *testing.T) {
	e := newEnv(t, DefaultConfig(), "alice", "bob")

	require.NoError(t, e.service.ScheduleMmrRoot(e.snap, e.step(access.None()), 1))
	e.moveTo(3)

	err := e.service.RemoveAuthorities(e.snap, e.step(access.Root()), []access.AccountID{"bob"})
	require.NoError(t, err)

	err = e.signMmrRoot("alice", 1)
	require.ErrorIs(t, err, ErrOnAuthoritiesChangeDis)
}

func TestMmrRootMessage(t *testing.T) {
	e := newEnv(t, DefaultConfig(), "alice")

	payload, err := types.MmrRootPayload("relay", e.service.config.OpCodes.MmrRoot, 5, []byte{1, 2})
	require.NoError(t, err)

	message, err := e.service.MmrRootMessage(5, []byte{1, 2})
	require.NoError(t, err)
	require.Equal(t, fakeSign{}.Hash(payload), message)
}
