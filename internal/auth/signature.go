package auth

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
)

var (
	ErrInvalidPublicKey = errors.New("invalid public key")
	ErrInvalidSignature = errors.New("invalid signature")
)

// ParsePublicKey decodes a hex-encoded raw Ed25519 public key, the form the
// Discord developer portal presents it in.
func ParsePublicKey(publicKeyHex string) (ed25519.PublicKey, error) {
	key, err := hex.DecodeString(publicKeyHex)
	if err != nil || len(key) != ed25519.PublicKeySize {
		return nil, ErrInvalidPublicKey
	}
	return ed25519.PublicKey(key), nil
}

// VerifyInteraction reports whether signatureHex is a valid Ed25519 signature
// over timestamp followed immediately by the raw request body.
// https://discord.com/developers/docs/interactions/receiving-and-responding#security-and-authorization
func VerifyInteraction(publicKey ed25519.PublicKey, timestamp string, body []byte, signatureHex string) bool {
	return VerifyInteractionDetailed(publicKey, timestamp, body, signatureHex) == nil
}

func VerifyInteractionDetailed(publicKey ed25519.PublicKey, timestamp string, body []byte, signatureHex string) error {
	if len(publicKey) != ed25519.PublicKeySize {
		return ErrInvalidPublicKey
	}

	signature, err := hex.DecodeString(signatureHex)
	if err != nil || len(signature) != ed25519.SignatureSize {
		return ErrInvalidSignature
	}

	message := make([]byte, 0, len(timestamp)+len(body))
	message = append(message, timestamp...)
	message = append(message, body...)

	if !ed25519.Verify(publicKey, message, signature) {
		return ErrInvalidSignature
	}
	return nil
}
