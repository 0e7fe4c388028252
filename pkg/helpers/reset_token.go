package helpers

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// ResetTokenTTL is how long a password reset ticket stays valid
const ResetTokenTTL = 10 * time.Minute

const resetTokenBytes = 32

// ResetTicket is a single-use password reset secret. Only Hashed is persisted;
// Plain goes to the user exactly once.
type ResetTicket struct {
	Plain     string
	Hashed    string
	ExpiresAt time.Time
}

// NewResetTicket generates a random 256-bit secret valid for ResetTokenTTL from now
func NewResetTicket(now time.Time) (ResetTicket, error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return ResetTicket{}, err
	}
	plain := hex.EncodeToString(b)
	return ResetTicket{
		Plain:     plain,
		Hashed:    HashResetToken(plain),
		ExpiresAt: now.Add(ResetTokenTTL),
	}, nil
}

// HashResetToken returns the sha256 hex digest stored for a reset secret
func HashResetToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
