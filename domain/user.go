package domain

import "time"

// User represents the profile row kept for an identity-provider account.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserScanCount is one row of the admin leaderboard.
type UserScanCount struct {
	Email     string `json:"email"`
	ScanCount int    `json:"scan_count"`
}
