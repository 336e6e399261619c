package mmr

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/relay/core/execution"
	"go.dedis.ch/relay/internal/testing/fake"
	tfake "go.dedis.ch/relay/testing/fake"
)

func TestAccumulator_Append(t *testing.T) {
	snap := fake.NewSnapshot()
	acc := NewAccumulator("mmr")

	require.Nil(t, acc.GetRoot(snap))

	require.NoError(t, acc.Append(snap, []byte("a")))
	first := acc.GetRoot(snap)
	require.Equal(t, crypto.Keccak256([]byte("a")), first)

	require.NoError(t, acc.Append(snap, []byte("b")))
	require.Equal(t, crypto.Keccak256(first, []byte("b")), acc.GetRoot(snap))

	state, err := acc.GetState(snap)
	require.NoError(t, err)
	require.Equal(t, uint64(2), state.Leaves)
}

func TestAccumulator_OnInitialize(t *testing.T) {
	snap := fake.NewSnapshot()
	acc := NewAccumulator("mmr")

	acc.OnInitialize(snap, execution.Step{Block: 0})
	require.Nil(t, acc.GetRoot(snap))

	acc.OnInitialize(snap, execution.Step{Block: 1})
	require.Equal(t, crypto.Keccak256(Leaf(0)), acc.GetRoot(snap))
}

func TestAccumulator_BadSnapshot(t *testing.T) {
	logger, check := tfake.CheckLog("failed to append leaf")

	acc := NewAccumulator("mmr")
	acc.logger = logger

	acc.OnInitialize(fake.NewBadSnapshot(), execution.Step{Block: 3})
	check(t)

	require.Nil(t, acc.GetRoot(fake.NewBadSnapshot()))

	snap := fake.NewSnapshot()
	snap.ErrWrite = fake.GetError()

	err := acc.Append(snap, []byte("a"))
	require.EqualError(t, err, fake.Err("failed to write state"))
}
