package service

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sakif/keep-bouncing-back/internal/apperror"
	"github.com/sakif/keep-bouncing-back/internal/repository"
)

// Validation constants.
const (
	MinNameLength      = 3
	MaxNameLength      = 50
	MaxEmailLength     = 254
	MinPasswordLength  = 8
	MaxPasswordLength  = 128
	MaxEquipmentLength = 50
	MaxCatalogName     = 100
	MaxNotesLength     = 2000
	MaxDurationMinutes = 24 * 60
	DefaultListLimit   = 20
	MaxListLimit       = 100
)

// Letters (including accented Latin), spaces, hyphens and apostrophes.
var namePattern = regexp.MustCompile(`^[A-Za-zÀ-ÖØ-öø-ÿ' -]+$`)

// validateName returns the trimmed name.
func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	if n < MinNameLength || n > MaxNameLength {
		return "", apperror.ValidationFailed("name",
			fmt.Sprintf("name must be between %d and %d characters", MinNameLength, MaxNameLength))
	}
	if !namePattern.MatchString(name) {
		return "", apperror.ValidationFailed("name", "Invalid name")
	}
	return name, nil
}

// NormalizeEmail trims and lowercases email. Every lookup and every write
// goes through it, so "USER@Example.com" and "user@example.com" are the same
// account.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validateEmail returns the normalized address.
func validateEmail(email string) (string, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return "", apperror.ValidationFailed("email", "email is required")
	}
	if len(email) > MaxEmailLength {
		return "", apperror.ValidationFailed("email", "email is too long")
	}
	// ParseAddress also accepts `Name <addr>`; only a bare address is valid here.
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return "", apperror.ValidationFailed("email", "invalid email address")
	}
	return email, nil
}

// validatePassword enforces the length policy, counted in characters rather
// than bytes. Nothing else about the password is restricted.
func validatePassword(field, password string) error {
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength {
		return apperror.ValidationFailed(field,
			fmt.Sprintf("password too short: must be at least %d characters", MinPasswordLength))
	}
	if n > MaxPasswordLength {
		return apperror.ValidationFailed(field,
			fmt.Sprintf("password too long: must be at most %d characters", MaxPasswordLength))
	}
	return nil
}

// page clamps pagination input to a sane range.
func page(limit, offset int) repository.ListOptions {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return repository.ListOptions{Limit: limit, Offset: offset}
}
