package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignRequest computes the request signature over the canonical signing
// string nonce || method || path || body. Method and path are unambiguous
// tokens, so no delimiter is needed between fields. The path must include
// the query string exactly as received.
func SignRequest(secret, nonce, method, path string, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(nonce))
	h.Write([]byte(method))
	h.Write([]byte(path))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyRequestSignature recomputes the signature and compares it to the
// presented value in constant time.
func VerifyRequestSignature(secret, nonce, method, path string, body []byte, presented string) bool {
	expected := SignRequest(secret, nonce, method, path, body)
	return hmac.Equal([]byte(expected), []byte(presented))
}
