package auth

import "time"

// User represents a credential record.
type User struct {
	ID           int64
	IDNumber     string
	Email        string
	PasswordHash string
	RoleID       int64
	CourseID     string
	Verified     bool
	Disabled     bool
	Verification *Verification
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Verification holds the pending email-verification state of a user.
type Verification struct {
	Code         string
	ExpiresAt    time.Time
	LastSentAt   time.Time
	PendingEmail string
}

// RoleRef is the minimal role view the auth flows need.
type RoleRef struct {
	ID   int64
	Name string
}
