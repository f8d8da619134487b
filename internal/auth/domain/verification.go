package domain

import "time"

// VerificationType distinguishes the two single-use code flows.
type VerificationType string

const (
	VerificationEmail         VerificationType = "EMAIL_VERIFICATION"
	VerificationPasswordReset VerificationType = "PASSWORD_RESET"
)

// VerificationCode is a single-use, typed, expiring code tied to a user.
// The code string is globally unique and unguessable; it is consumed
// (deleted) exactly once on successful use.
type VerificationCode struct {
	ID        string
	UserID    string
	Code      string
	Type      VerificationType
	ExpiresAt time.Time
	CreatedAt time.Time
}
