package models

import "time"

type User struct {
	ID        int       `json:"id" example:"1"`                   // User ID
	Username  string    `json:"username" example:"johndoe"`       // Username
	Email     string    `json:"email" example:"user@example.com"` // User email
	IsActive  bool      `json:"is_active"`                        // Account activated via email link
	CreatedAt time.Time `json:"created_at"`
}

// UserPreference holds per-user display settings. The currency label is a
// display preference only; amounts carry no currency of their own.
type UserPreference struct {
	UserID   int    `json:"user_id" db:"user_id"`
	Currency string `json:"currency" db:"currency"`
}

// DefaultCurrency is reported when a user has no stored preference.
const DefaultCurrency = "Default"
