package middleware

import (
	"bytes"
	"crypto/ed25519"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"azurebot/internal/auth"
	"azurebot/internal/telemetry"
)

const (
	signatureHeader = "X-Signature-Ed25519"
	timestampHeader = "X-Signature-Timestamp"
)

// VerifySignature rejects any request that does not carry a valid Ed25519
// signature over timestamp+body. On failure nothing downstream runs and the
// body is never parsed. The raw body is restored for binding on success, and
// a fresh traceparent is attached to the request context for propagation
// into queued work.
func VerifySignature(publicKey ed25519.PublicKey) gin.HandlerFunc {
	return func(c *gin.Context) {
		signature := c.GetHeader(signatureHeader)
		timestamp := c.GetHeader(timestampHeader)
		if signature == "" || timestamp == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid request signature"})
			c.Abort()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid request signature"})
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if !auth.VerifyInteraction(publicKey, timestamp, body, signature) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid request signature"})
			c.Abort()
			return
		}

		ctx := telemetry.WithTraceParent(c.Request.Context(), telemetry.NewTraceParent())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
