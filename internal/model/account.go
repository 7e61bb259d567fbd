// Package model defines the data structures used throughout the application.
package model

import "time"

// Account is a registered user.
//
// Email is always stored normalized (trimmed, lowercase) and is unique across
// all accounts. PasswordHash holds the encoded Argon2id (or legacy bcrypt)
// hash and is never serialized.
type Account struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
