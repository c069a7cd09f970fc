package domain

import "time"

// Account representa una identidad de acceso al sistema.
type Account struct {
	ID                 string     `json:"id"`
	Email              string     `json:"email"`
	DisplayName        string     `json:"display_name"`
	PasswordHash       string     `json:"-"`
	FailedAttempts     int        `json:"-"`
	LockedUntil        *time.Time `json:"-"`
	LastLoginAt        *time.Time `json:"last_login_at,omitempty"`
	TwoFactorEnabled   bool       `json:"two_factor_enabled"`
	TwoFactorCodeHash  string     `json:"-"`
	TwoFactorExpiresAt *time.Time `json:"-"`
	ResetTokenHash     string     `json:"-"`
	ResetExpiresAt     *time.Time `json:"-"`
	CreatedAt          time.Time  `json:"created_at"`
}
