package login

import (
	"crypto/rand"
	"encoding/base64"
)

// newSessionToken returns 32 random bytes, URL-safe encoded.
func newSessionToken() string {
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	return base64.RawURLEncoding.EncodeToString(buf)
}
