// Package mmr defines the source of the accumulator root that the relay
// authorities sign, and provides a simple accumulator of block leaves.
//
// The accumulator appends one leaf per block for the parent block, so the
// root available at block n commits to every block before n. The root of a
// block is thus queryable two blocks later, once its child has been appended.
package mmr

import (
	"encoding/binary"

	"github.com/ChainSafe/gossamer/pkg/scale"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"
	"go.dedis.ch/relay"
	"go.dedis.ch/relay/core/execution"
	"go.dedis.ch/relay/core/store"
	"go.dedis.ch/relay/core/store/prefixed"
	"golang.org/x/xerrors"
)

var stateKey = []byte("state")

// RootSource is the interface to get the current root of the accumulator.
type RootSource interface {
	// GetRoot returns the current root, or nil if there is none yet.
	GetRoot(snap store.Readable) []byte
}

// State is the stored state of the accumulator.
type State struct {
	Leaves uint64
	Root   []byte
}

// Accumulator is a hash chain of leaves.
//
// - implements mmr.RootSource
// - implements chain.Hook
type Accumulator struct {
	namespace string
	logger    zerolog.Logger
}

// NewAccumulator creates an accumulator that stores its state under the
// namespace.
func NewAccumulator(namespace string) Accumulator {
	return Accumulator{
		namespace: namespace,
		logger:    relay.Logger.With().Str("module", "mmr").Logger(),
	}
}

// GetState returns the stored state of the accumulator.
func (a Accumulator) GetState(snap store.Readable) (State, error) {
	var state State

	data, err := prefixed.NewReadable(a.namespace, snap).Get(stateKey)
	if err != nil {
		return state, xerrors.Errorf("failed to read state: %v", err)
	}

	if len(data) == 0 {
		return state, nil
	}

	err = scale.Unmarshal(data, &state)
	if err != nil {
		return state, xerrors.Errorf("failed to decode state: %v", err)
	}

	return state, nil
}

// Append adds the leaf to the accumulator. The new root is the keccak256 hash
// of the previous root followed by the leaf.
func (a Accumulator) Append(snap store.Snapshot, leaf []byte) error {
	state, err := a.GetState(snap)
	if err != nil {
		return err
	}

	state.Leaves++
	state.Root = crypto.Keccak256(state.Root, leaf)

	data, err := scale.Marshal(state)
	if err != nil {
		return xerrors.Errorf("failed to encode state: %v", err)
	}

	err = prefixed.NewSnapshot(a.namespace, snap).Set(stateKey, data)
	if err != nil {
		return xerrors.Errorf("failed to write state: %v", err)
	}

	return nil
}

// GetRoot implements mmr.RootSource.
func (a Accumulator) GetRoot(snap store.Readable) []byte {
	state, err := a.GetState(snap)
	if err != nil {
		a.logger.Warn().Err(err).Msg("root not available")
		return nil
	}

	if state.Leaves == 0 {
		return nil
	}

	return state.Root
}

// OnInitialize implements chain.Hook. It appends the leaf of the parent
// block.
func (a Accumulator) OnInitialize(snap store.Snapshot, step execution.Step) {
	if step.Block == 0 {
		return
	}

	err := a.Append(snap, Leaf(step.Block-1))
	if err != nil {
		a.logger.Err(err).Uint64("block", step.Block).Msg("failed to append leaf")
	}
}

// Leaf returns the leaf of a block.
func Leaf(block uint64) []byte {
	data := make([]byte, 8)
	binary.BigEndian.PutUint64(data, block)

	return crypto.Keccak256(data)
}
