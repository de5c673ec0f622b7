// Package random produces the secrets used as development defaults.
package random

import (
	"crypto/rand"
	"encoding/hex"
)

// Bytes returns n bytes from crypto/rand. It panics when the system source
// fails.
func Bytes(n int) []byte {
	bytes := make([]byte, n)

	_, err := rand.Read(bytes)
	if err != nil {
		panic(err)
	}

	return bytes
}

// String returns n random bytes hex encoded, so the result has 2n characters.
func String(n int) string {
	return hex.EncodeToString(Bytes(n))
}
