package ecdsa

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testPrivHex = "289c2857d4598e37fb9647507e47a309d6133539bf21a8b9cb6df88fd5232032"
	testAddrHex = "970e8128ab834e8eac17ab8e3812f010678cf791"
)

func TestSign_Hash(t *testing.T) {
	hash := NewSign().Hash(nil)

	// keccak256 of the empty string
	require.Equal(t, "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		hex.EncodeToString(hash))
}

func TestSigner_GetPublicKey(t *testing.T) {
	signer, err := NewSignerFromHex(testPrivHex)
	require.NoError(t, err)

	require.Equal(t, testAddrHex, hex.EncodeToString(signer.GetPublicKey()))

	data, err := signer.MarshalBinary()
	require.NoError(t, err)

	other, err := NewSignerFromBytes(data)
	require.NoError(t, err)
	require.Equal(t, signer.GetPublicKey(), other.GetPublicKey())

	_, err = NewSignerFromHex("zz")
	require.Error(t, err)

	_, err = NewSignerFromBytes([]byte{1, 2})
	require.Error(t, err)
}

func TestSign_VerifySignature(t *testing.T) {
	sign := NewSign()

	signer, err := NewSignerFromHex(testPrivHex)
	require.NoError(t, err)

	message := sign.Hash([]byte("mmr root"))

	signature, err := signer.Sign(message)
	require.NoError(t, err)
	require.Len(t, signature, SignatureLength)
	require.Contains(t, []byte{27, 28}, signature[64])

	require.True(t, sign.VerifySignature(signature, message, signer.GetPublicKey()))

	// Raw recovery identifier is accepted as well.
	raw := append([]byte{}, signature...)
	raw[64] -= 27
	require.True(t, sign.VerifySignature(raw, message, signer.GetPublicKey()))

	other, err := NewSigner()
	require.NoError(t, err)
	require.False(t, sign.VerifySignature(signature, message, other.GetPublicKey()))

	require.False(t, sign.VerifySignature(signature, sign.Hash([]byte("other")), signer.GetPublicKey()))
	require.False(t, sign.VerifySignature(signature[:64], message, signer.GetPublicKey()))
	require.False(t, sign.VerifySignature(signature, message, []byte{1, 2, 3}))

	bad := append([]byte{}, signature...)
	bad[64] = 5
	require.False(t, sign.VerifySignature(bad, message, signer.GetPublicKey()))
}
