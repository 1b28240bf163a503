package models

import "time"

// RevokedToken is a durable revocation ledger row. TokenHash is the
// SHA-256 hex digest of the raw token; AllDevices marks a logout-all sentinel.
// Rows are keyed by account id, which survives email changes.
type RevokedToken struct {
	TokenHash  string
	AccountID  string
	ExpiresAt  time.Time
	RevokedAt  time.Time
	AllDevices bool
}
