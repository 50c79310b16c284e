package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// SignatureHeader carries the base64 HMAC of the raw request body
const SignatureHeader = "X-Line-Signature"

// ValidateSignature checks that signature is the base64-encoded HMAC-SHA256 of
// body under secret. body must be the exact bytes received on the wire.
// See: https://developers.line.biz/en/reference/messaging-api/#signature-validation
func ValidateSignature(body []byte, signature string, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}

	expected := Sign(body, secret)

	// Compare with provided signature using constant-time comparison
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Sign returns the signature a sender holding secret would attach to body
func Sign(body []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}
