package types

import (
	"github.com/ChainSafe/gossamer/pkg/scale"
	"golang.org/x/xerrors"
)

// MmrRootPayload returns the payload of the message that attests the root of
// a block. It is the SCALE encoding of the tuple
//
//	(runtime_name: String, op_code: [u8; 4], block: Compact<u64>, root: [u8; N])
//
// where the root is appended as is.
func MmrRootPayload(runtimeName string, op OpCode, block uint64, root []byte) ([]byte, error) {
	payload, err := header(runtimeName, op, block)
	if err != nil {
		return nil, err
	}

	return append(payload, root...), nil
}

// AuthoritiesChangePayload returns the payload of the message that attests
// the next authority set. It is the SCALE encoding of the tuple
//
//	(runtime_name: String, op_code: [u8; 4], term: Compact<u32>, signers: Vec<[u8; N]>)
//
// where each signer is a fixed-size key.
func AuthoritiesChangePayload(runtimeName string, op OpCode, term uint32, signers [][]byte) ([]byte, error) {
	payload, err := header(runtimeName, op, uint64(term))
	if err != nil {
		return nil, err
	}

	length, err := scale.Marshal(uint(len(signers)))
	if err != nil {
		return nil, xerrors.Errorf("failed to encode length: %v", err)
	}

	payload = append(payload, length...)

	for _, signer := range signers {
		payload = append(payload, signer...)
	}

	return payload, nil
}

func header(runtimeName string, op OpCode, n uint64) ([]byte, error) {
	name, err := scale.Marshal(runtimeName)
	if err != nil {
		return nil, xerrors.Errorf("failed to encode runtime name: %v", err)
	}

	compact, err := scale.Marshal(uint(n))
	if err != nil {
		return nil, xerrors.Errorf("failed to encode number: %v", err)
	}

	payload := append(name, op[:]...)

	return append(payload, compact...), nil
}
