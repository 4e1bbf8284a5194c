package persistence

import "time"

// User is an account record, including the credential and capability fields
// consumed by the auth service.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	IsAdmin      bool
	CanApprove   bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session is an authentication session persisted for a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}
