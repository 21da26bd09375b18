// FilePath: internal/models/models.user.go
package models

import "time"

// User is an API-key principal. Users are pre-created by an admin and
// activated through registration, which issues their key exactly once.
type User struct {
	ID           int64      `json:"user_id" db:"user_id"`
	Username     string     `json:"username" db:"username"`
	Email        *string    `json:"email,omitempty" db:"email"`
	APIKeyHash   *string    `json:"-" db:"api_key_hash"`
	APIKeySalt   *string    `json:"-" db:"api_key_salt"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	IsRegistered bool       `json:"is_registered" db:"is_registered"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	RegisteredAt *time.Time `json:"registered_at,omitempty" db:"registered_at"`
	LastLogin    *time.Time `json:"last_login,omitempty" db:"last_login"`
}

// RegisterRequest is the registration payload for a pre-created user.
type RegisterRequest struct {
	Username string  `json:"username"`
	Email    *string `json:"email,omitempty"`
}

// APIKeyResponse returns a freshly issued API key. The key is never
// stored or shown again.
type APIKeyResponse struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	APIKey   string `json:"api_key"`
	Message  string `json:"message"`
}
