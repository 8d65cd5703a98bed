package auth

import "time"

// User represents an authenticated user account.
type User struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash string
	Role         string
	BranchID     *string
	IsActive     bool
	LastLogin    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
