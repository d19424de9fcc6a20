// Package model defines domain entities for the application.
package model

import "time"

// User is a registered identity. PasswordHash never leaves the credential store
// through JSON.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
