// Package models defines the persistent domain entities: users, analysis
// records, access credentials and audit entries.
package models

import "time"

// User is an end user known only by the one-way hash of their platform
// identity. Users are created on first contact and never hard-deleted;
// deactivation flips Active instead.
type User struct {
	ID         string
	IDHash     string
	CreatedAt  time.Time
	LastSeenAt time.Time
	Active     bool
}
