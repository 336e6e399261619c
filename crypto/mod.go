// Package crypto defines the signature capability of the relay authorities.
//
// The relay authorities sign messages that are verified by an external chain,
// so the scheme is chosen per external chain. A scheme provides the hash that
// turns an encoded payload into the message to sign, and the verification of a
// signature against the external key of a signer.
package crypto

// Sign is the signature capability of an external chain.
type Sign interface {
	// Hash returns the message to sign for the payload.
	Hash(payload []byte) []byte

	// VerifySignature returns true if the signature of the message has been
	// produced by the signer.
	VerifySignature(signature, message, signer []byte) bool
}

// Signer is the interface of the key of a relayer that signs the messages on
// behalf of an authority.
type Signer interface {
	// GetPublicKey returns the external key of the signer as it is registered
	// on chain.
	GetPublicKey() []byte

	// Sign returns the signature of the message.
	Sign(message []byte) ([]byte, error)

	// MarshalBinary returns the private key of the signer.
	MarshalBinary() ([]byte, error)
}
