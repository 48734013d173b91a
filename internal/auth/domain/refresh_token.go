package domain

import "time"

// RefreshToken is the persisted record. At most one live row exists per user.
// RawToken carries the opaque value only on issuance; at rest the store keeps
// the hash.
type RefreshToken struct {
	ID        string
	TokenHash string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
	RawToken  string
}
