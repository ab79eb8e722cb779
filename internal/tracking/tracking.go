package tracking

import (
	"crypto/rand"
	"fmt"
)

// Uppercase letters and digits minus the visually ambiguous O/0/I/1.
const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeLength is the fixed length of a public tracking code.
const CodeLength = 12

// NewCode generates an unpredictable tracking code, e.g. "X9F2KQ8P4MWB".
// The code is the only public lookup key for an order and grants read access
// to its status, so it is drawn from crypto/rand.
func NewCode() (string, error) {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("tracking code entropy: %w", err)
	}
	out := make([]byte, CodeLength)
	for i, b := range buf {
		// len(alphabet) is 32, which divides 256, so the draw stays uniform.
		out[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(out), nil
}
