package models

import "time"

// AuditEntry is one append-only row in the audit log. UserID and
// CredentialID are empty when the request carried no identity.
type AuditEntry struct {
	ID           string
	UserID       string
	CredentialID string
	Action       string
	Resource     string
	SourceAddr   string
	StatusCode   int
	CreatedAt    time.Time
}
