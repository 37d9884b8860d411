// Package idgen generates random client-side identifiers (pending
// command ids, idempotency-free correlation ids) from crypto/rand.
package idgen

import (
	"crypto/rand"

	"github.com/computesdk/computesdk-sub001/internal/base64url"
)

// DefaultLen is the byte length used when callers don't need a specific size.
const DefaultLen = 16

// Random returns a base64url-encoded identifier built from n random bytes.
func Random(n int) (string, error) {
	if n <= 0 {
		n = DefaultLen
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64url.Encode(b), nil
}

// MustRandom is Random with DefaultLen, panicking on a crypto/rand
// failure (treated as unrecoverable, mirroring the source's assumption
// that the platform RNG is always available).
func MustRandom() string {
	id, err := Random(DefaultLen)
	if err != nil {
		panic("idgen: crypto/rand unavailable: " + err.Error())
	}
	return id
}
