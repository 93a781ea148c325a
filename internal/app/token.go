package app

import (
	"crypto/rand"
	"encoding/hex"
)

// newHoldToken mints the capability string for a hold: 128 bits from
// crypto/rand, hex encoded to 32 characters.
func newHoldToken() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return hex.EncodeToString(b)
}
