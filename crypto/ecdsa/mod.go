// Package ecdsa implements the signature capability for EVM-style chains.
//
// A message is the keccak256 hash of the payload. The signature is the
// 65-byte [R || S || V] ECDSA signature over secp256k1 of the personal-sign
// digest of the message, and a signer is identified by its 20-byte address.
package ecdsa

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/xerrors"
)

const (
	// SignatureLength is the length of a signature.
	SignatureLength = crypto.SignatureLength

	// AddressLength is the length of a signer.
	AddressLength = common.AddressLength

	recoveryIDIndex = crypto.RecoveryIDOffset
)

// Sign is the signature capability of an EVM-style chain.
//
// - implements crypto.Sign
type Sign struct{}

// NewSign returns the signature capability.
func NewSign() Sign {
	return Sign{}
}

// Hash implements crypto.Sign. It returns the keccak256 hash of the payload.
func (Sign) Hash(payload []byte) []byte {
	return crypto.Keccak256(payload)
}

// VerifySignature implements crypto.Sign. It recovers the public key from the
// signature of the personal-sign digest of the message and compares its
// address with the signer. The recovery identifier can be either in the raw
// format (0/1) or in the Ethereum format (27/28).
func (Sign) VerifySignature(signature, message, signer []byte) bool {
	if len(signature) != SignatureLength || len(signer) != AddressLength {
		return false
	}

	pubkey, err := crypto.SigToPub(accounts.TextHash(message), normalize(signature))
	if err != nil {
		return false
	}

	return crypto.PubkeyToAddress(*pubkey) == common.BytesToAddress(signer)
}

func normalize(signature []byte) []byte {
	normalized := make([]byte, SignatureLength)
	copy(normalized, signature)

	switch normalized[recoveryIDIndex] {
	case 27:
		normalized[recoveryIDIndex] = 0
	case 28:
		normalized[recoveryIDIndex] = 1
	}

	return normalized
}

// Signer is the key of a relayer of an EVM-style chain.
//
// - implements crypto.Signer
type Signer struct {
	key *ecdsa.PrivateKey
}

// NewSigner returns a signer with a new random key.
func NewSigner() (Signer, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return Signer{}, xerrors.Errorf("failed to generate key: %v", err)
	}

	return Signer{key: key}, nil
}

// NewSignerFromHex returns the signer of the hex-encoded private key.
func NewSignerFromHex(hexkey string) (Signer, error) {
	key, err := crypto.HexToECDSA(hexkey)
	if err != nil {
		return Signer{}, xerrors.Errorf("invalid key: %v", err)
	}

	return Signer{key: key}, nil
}

// NewSignerFromBytes returns the signer of the private key.
func NewSignerFromBytes(data []byte) (Signer, error) {
	key, err := crypto.ToECDSA(data)
	if err != nil {
		return Signer{}, xerrors.Errorf("invalid key: %v", err)
	}

	return Signer{key: key}, nil
}

// GetPublicKey implements crypto.Signer. It returns the address of the
// signer.
func (s Signer) GetPublicKey() []byte {
	return crypto.PubkeyToAddress(s.key.PublicKey).Bytes()
}

// Sign implements crypto.Signer. It signs the personal-sign digest of the
// message and returns the signature with a recovery identifier of 27 or 28.
func (s Signer) Sign(message []byte) ([]byte, error) {
	signature, err := crypto.Sign(accounts.TextHash(message), s.key)
	if err != nil {
		return nil, xerrors.Errorf("failed to sign: %v", err)
	}

	signature[recoveryIDIndex] += 27

	return signature, nil
}

// MarshalBinary implements crypto.Signer.
func (s Signer) MarshalBinary() ([]byte, error) {
	return crypto.FromECDSA(s.key), nil
}
