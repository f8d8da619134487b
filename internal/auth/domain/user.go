package domain

import "time"

// Preferences holds per-user settings. TwoFactorEnabled and TwoFactorSecret
// are carried for forward compatibility; no login flow consults them yet.
type Preferences struct {
	TwoFactorEnabled   bool   `json:"enable2FA"`
	EmailNotifications bool   `json:"emailNotifications"`
	TwoFactorSecret    string `json:"-"`
}

// User is the stored identity record. PasswordHash is an argon2id PHC string
// and, like the 2FA secret, is never serialized to external representations.
type User struct {
	ID            string      `json:"id"`
	Username      string      `json:"username"`
	Email         string      `json:"email"`
	PasswordHash  string      `json:"-"`
	EmailVerified bool        `json:"isEmailVerified"`
	Preferences   Preferences `json:"userPreferences"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}
