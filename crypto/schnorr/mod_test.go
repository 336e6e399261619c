package schnorr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSign_VerifySignature(t *testing.T) {
	sign := NewSign()
	signer := NewSigner()

	message := sign.Hash([]byte("authorities"))
	require.Len(t, message, 32)

	signature, err := signer.Sign(message)
	require.NoError(t, err)

	require.True(t, sign.VerifySignature(signature, message, signer.GetPublicKey()))
	require.False(t, sign.VerifySignature(signature, sign.Hash(nil), signer.GetPublicKey()))
	require.False(t, sign.VerifySignature(signature, message, NewSigner().GetPublicKey()))
	require.False(t, sign.VerifySignature(signature, message, []byte{1}))
	require.False(t, sign.VerifySignature([]byte{1}, message, signer.GetPublicKey()))
}

func TestSigner_MarshalBinary(t *testing.T) {
	signer := NewSigner()

	data, err := signer.MarshalBinary()
	require.NoError(t, err)

	other, err := NewSignerFromBytes(data)
	require.NoError(t, err)
	require.Equal(t, signer.GetPublicKey(), other.GetPublicKey())

	message := NewSign().Hash([]byte("mmr root"))

	signature, err := other.Sign(message)
	require.NoError(t, err)
	require.True(t, NewSign().VerifySignature(signature, message, signer.GetPublicKey()))

	_, err = NewSignerFromBytes([]byte{1})
	require.Error(t, err)
	require.Contains(t, err.Error(), "couldn't unmarshal scalar")
}
