package types

import (
	"github.com/ChainSafe/gossamer/pkg/scale"
	"golang.org/x/xerrors"
)

// Encode returns the SCALE encoding of the value.
func Encode(value interface{}) ([]byte, error) {
	data, err := scale.Marshal(value)
	if err != nil {
		return nil, xerrors.Errorf("failed to encode %T: %v", value, err)
	}

	return data, nil
}

// Decode decodes the SCALE encoding into the destination, which must be a
// pointer.
func Decode(data []byte, dst interface{}) error {
	err := scale.Unmarshal(data, dst)
	if err != nil {
		return xerrors.Errorf("failed to decode %T: %v", dst, err)
	}

	return nil
}
