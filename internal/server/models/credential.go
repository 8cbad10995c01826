package models

import "time"

// AccessCredential is a revocable, expirable API credential. Only the
// bcrypt hash of the secret is stored. A credential whose ExpiresAt lies in
// the past is never treated as valid regardless of hash match.
type AccessCredential struct {
	ID            string
	SecretHash    string
	Label         string
	Active        bool
	RatePerMinute int
	ExpiresAt     *time.Time
	LastUsedAt    *time.Time
	CreatedAt     time.Time
}

// Expired reports whether the credential has an expiry in the past.
func (c *AccessCredential) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}
