package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Compute returns the hex-encoded HMAC-SHA256 of body under the given secret.
func Compute(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a candidate signature against the HMAC-SHA256 of body.
// Missing, malformed, and mismatched signatures all report false; callers
// cannot distinguish between them. Comparison is constant-time.
func Verify(secret string, body []byte, candidate string) bool {
	expected := Compute(secret, body)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(candidate)) == 1
}
