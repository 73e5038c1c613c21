package models

import "time"

// Event types recorded by the auth flows.
const (
	EventUserSignup    = "user.signup"
	EventUserLogin     = "user.login"
	EventUserLoginFail = "user.login.fail"
	EventUserUpdate    = "user.update"
	EventUserDelete    = "user.delete"
	EventUserDeleteAll = "user.delete.all"
)

const (
	EventLevelInfo = "info"
	EventLevelWarn = "warn"
)

// Event represents an auditable action on user accounts.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`  // e.g., "user.signup", "user.delete.all"
	Level     string    `json:"level"` // "info" or "warn"
	Message   string    `json:"message"`
	UserID    *string   `json:"userId,omitempty"` // Nullable for bulk events
	CreatedAt time.Time `json:"createdAt"`
}
