package models

import "time"

// User represents a user account in the system.
type User struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose this to the client
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserFilter matches users by equality on every non-nil field. The zero
// value matches everyone.
type UserFilter struct {
	ID        *string
	Email     *string
	FirstName *string
	LastName  *string
}

// UserLookup selects a single user by exactly one unique key.
type UserLookup struct {
	ID    string
	Email string
}

// UserPatch holds the fields an update sets. Nil fields are left alone.
type UserPatch struct {
	FirstName    *string
	LastName     *string
	Email        *string
	PasswordHash *string
}

// Page bounds a listing. Zero First means no limit.
type Page struct {
	Skip  int
	First int
}
