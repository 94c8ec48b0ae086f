package middleware

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"azurebot/internal/telemetry"
)

func signedRequest(t *testing.T, priv ed25519.PrivateKey, timestamp string, body []byte) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/interactions", bytes.NewReader(body))
	sig := ed25519.Sign(priv, append([]byte(timestamp), body...))
	req.Header.Set("X-Signature-Ed25519", hex.EncodeToString(sig))
	req.Header.Set("X-Signature-Timestamp", timestamp)
	return req
}

func TestVerifySignature_Valid(t *testing.T) {
	gin.SetMode(gin.TestMode)
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	var sawTraceParent bool
	r := gin.New()
	r.POST("/api/interactions", VerifySignature(pub), func(c *gin.Context) {
		_, sawTraceParent = telemetry.FromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, signedRequest(t, priv, "1700000000", []byte(`{"type":1}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !sawTraceParent {
		t.Fatal("verified requests must carry a traceparent")
	}
}

func TestVerifySignature_MissingHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	handlerRan := false
	r := gin.New()
	r.POST("/api/interactions", VerifySignature(pub), func(c *gin.Context) {
		handlerRan = true
		c.Status(http.StatusOK)
	})

	body := []byte(`{"type":1}`)
	for _, drop := range []string{"X-Signature-Ed25519", "X-Signature-Timestamp"} {
		req := signedRequest(t, priv, "1700000000", body)
		req.Header.Del(drop)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("missing %s: expected 401, got %d", drop, w.Code)
		}
	}
	if handlerRan {
		t.Fatal("handler must not run without both signature headers")
	}
}

func TestVerifySignature_BadSignature(t *testing.T) {
	gin.SetMode(gin.TestMode)
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	r := gin.New()
	r.POST("/api/interactions", VerifySignature(pub), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	// Signature computed over a different body than the one sent.
	sig := ed25519.Sign(priv, append([]byte("1700000000"), []byte(`{"type":1}`)...))
	req := httptest.NewRequest(http.MethodPost, "/api/interactions", bytes.NewReader([]byte(`{"type":2}`)))
	req.Header.Set("X-Signature-Ed25519", hex.EncodeToString(sig))
	req.Header.Set("X-Signature-Timestamp", "1700000000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for tampered body, got %d", w.Code)
	}
}
