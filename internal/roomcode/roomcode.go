// Package roomcode generates the room codes and peer ids the game
// clients use. The relay itself accepts any non-empty value.
package roomcode

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	// Length of a room code.
	Length = 6

	// PeerIDLength is the length of a generated peer id.
	PeerIDLength = 9

	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Generate returns a random six character code from A-Z and 0-9.
func Generate() (string, error) {
	var b strings.Builder
	b.Grow(Length)
	max := big.NewInt(int64(len(alphabet)))
	for range Length {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(alphabet[n.Int64()])
	}
	return b.String(), nil
}

// Valid reports whether code looks like a generated room code.
func Valid(code string) bool {
	if len(code) != Length {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(alphabet, rune(code[i])) {
			return false
		}
	}
	return true
}

// Normalize upper-cases user input so typed codes match.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NewPeerID returns a nine character lowercase alphanumeric id.
func NewPeerID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return id[:PeerIDLength]
}
