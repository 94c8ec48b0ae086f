package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	cfg := TokenConfig{Secret: "secret", Expiry: time.Hour, Issuer: "test"}
	tok, err := CreateToken("deployer", cfg)
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}

	claims, err := VerifyToken(tok, cfg)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if claims.Subject != "deployer" {
		t.Fatalf("expected subject deployer, got %q", claims.Subject)
	}
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	tok, err := CreateToken("deployer", TokenConfig{Secret: "secret", Expiry: time.Hour, Issuer: "test"})
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}

	if _, err := VerifyToken(tok, TokenConfig{Secret: "other", Expiry: time.Hour, Issuer: "test"}); err == nil {
		t.Fatal("expected verification to fail with wrong secret")
	}
}

func TestCreateToken_Validation(t *testing.T) {
	if _, err := CreateToken("deployer", TokenConfig{Expiry: time.Hour}); err == nil {
		t.Fatal("expected error for missing secret")
	}
	if _, err := CreateToken("", DefaultTokenConfig("secret")); err == nil {
		t.Fatal("expected error for missing subject")
	}
	if _, err := CreateToken("deployer", TokenConfig{Secret: "secret", Expiry: -1}); err == nil {
		t.Fatal("expected error for invalid expiry")
	}
}
