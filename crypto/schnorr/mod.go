// Package schnorr implements the signature capability for chains that verify
// Schnorr signatures over the Edwards 25519 elliptic curve.
//
// A message is the SHA-256 hash of the payload and a signer is identified by
// its marshaled public key.
package schnorr

import (
	"go.dedis.ch/kyber/v3/sign/schnorr"
	"go.dedis.ch/kyber/v3/suites"
	"go.dedis.ch/kyber/v3/util/key"
	"golang.org/x/xerrors"
)

var suite = suites.MustFind("Ed25519")

// Sign is the Schnorr signature capability.
//
// - implements crypto.Sign
type Sign struct{}

// NewSign returns the signature capability.
func NewSign() Sign {
	return Sign{}
}

// Hash implements crypto.Sign. It returns the hash of the payload with the
// hash function of the suite, which is SHA-256 for Ed25519.
func (Sign) Hash(payload []byte) []byte {
	h := suite.Hash()
	h.Write(payload)

	return h.Sum(nil)
}

// VerifySignature implements crypto.Sign.
func (Sign) VerifySignature(signature, message, signer []byte) bool {
	point := suite.Point()

	err := point.UnmarshalBinary(signer)
	if err != nil {
		return false
	}

	return schnorr.Verify(suite, point, message, signature) == nil
}

// Signer implements a signer that is creating Schnorr signatures using the
// private key of the Ed25519 elliptic curve.
//
// - implements crypto.Signer
type Signer struct {
	keyPair *key.Pair
}

// NewSigner returns a new random schnorr signer.
func NewSigner() Signer {
	return Signer{
		keyPair: key.NewKeyPair(suite),
	}
}

// NewSignerFromBytes returns the signer of the marshaled private key.
func NewSignerFromBytes(data []byte) (Signer, error) {
	scalar := suite.Scalar()

	err := scalar.UnmarshalBinary(data)
	if err != nil {
		return Signer{}, xerrors.Errorf("couldn't unmarshal scalar: %v", err)
	}

	kp := &key.Pair{
		Private: scalar,
		Public:  suite.Point().Mul(scalar, nil),
	}

	return Signer{keyPair: kp}, nil
}

// GetPublicKey implements crypto.Signer. It returns the marshaled public key.
func (s Signer) GetPublicKey() []byte {
	data, err := s.keyPair.Public.MarshalBinary()
	if err != nil {
		return nil
	}

	return data
}

// Sign implements crypto.Signer.
func (s Signer) Sign(message []byte) ([]byte, error) {
	sig, err := schnorr.Sign(suite, s.keyPair.Private, message)
	if err != nil {
		return nil, xerrors.Errorf("couldn't make schnorr signature: %v", err)
	}

	return sig, nil
}

// MarshalBinary implements crypto.Signer.
func (s Signer) MarshalBinary() ([]byte, error) {
	return s.keyPair.Private.MarshalBinary()
}
