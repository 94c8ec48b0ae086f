package auth

import (
	"crypto/ed25519"
	"encoding/hex"
	"testing"
)

func TestVerifyInteraction_Valid(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	timestamp := "1700000000"
	body := []byte(`{"type":1}`)
	sig := ed25519.Sign(priv, append([]byte(timestamp), body...))

	if !VerifyInteraction(pub, timestamp, body, hex.EncodeToString(sig)) {
		t.Fatal("expected valid signature to verify")
	}
}

func TestVerifyInteraction_Mutations(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	timestamp := "1700000000"
	body := []byte(`{"type":1}`)
	sig := ed25519.Sign(priv, append([]byte(timestamp), body...))

	mutatedBody := append([]byte(nil), body...)
	mutatedBody[0] ^= 0x01
	if VerifyInteraction(pub, timestamp, mutatedBody, hex.EncodeToString(sig)) {
		t.Fatal("mutated body must not verify")
	}

	if VerifyInteraction(pub, "1700000001", body, hex.EncodeToString(sig)) {
		t.Fatal("mutated timestamp must not verify")
	}

	mutatedSig := append([]byte(nil), sig...)
	mutatedSig[0] ^= 0x01
	if VerifyInteraction(pub, timestamp, body, hex.EncodeToString(mutatedSig)) {
		t.Fatal("mutated signature must not verify")
	}
}

func TestVerifyInteraction_BadInputs(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	if VerifyInteraction(pub, "1700000000", []byte("{}"), "not-hex") {
		t.Fatal("non-hex signature must not verify")
	}
	if VerifyInteraction(pub, "1700000000", []byte("{}"), "abcd") {
		t.Fatal("short signature must not verify")
	}
	if err := VerifyInteractionDetailed(nil, "1700000000", []byte("{}"), "abcd"); err != ErrInvalidPublicKey {
		t.Fatalf("expected ErrInvalidPublicKey, got %v", err)
	}
}

func TestParsePublicKey(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	parsed, err := ParsePublicKey(hex.EncodeToString(pub))
	if err != nil {
		t.Fatalf("ParsePublicKey: %v", err)
	}
	if !parsed.Equal(pub) {
		t.Fatal("parsed key does not match original")
	}

	if _, err := ParsePublicKey("zz"); err != ErrInvalidPublicKey {
		t.Fatalf("expected ErrInvalidPublicKey, got %v", err)
	}
	if _, err := ParsePublicKey("abcd"); err != ErrInvalidPublicKey {
		t.Fatalf("expected ErrInvalidPublicKey for short key, got %v", err)
	}
}
