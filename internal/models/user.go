package models

import "time"

type User struct {
	ID           int64  `json:"id" db:"id"`
	Email        string `json:"email" db:"email"`
	Username     string `json:"username" db:"username"`
	PasswordHash string `json:"-" db:"password_hash"`
	// Role is the legacy single-role label, informational only; authorization
	// goes through user_roles.
	Role      string    `json:"role" db:"role"`
	Mode      Mode      `json:"mode" db:"mode"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	RefreshToken     *string    `json:"-" db:"refresh_token"`
	RefreshExpiresAt *time.Time `json:"-" db:"refresh_expires_at"`
	RefreshRevoked   bool       `json:"-" db:"refresh_revoked"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

type SwitchModeRequest struct {
	Mode Mode `json:"mode" binding:"required"`
}

// TokenPair is what login, refresh and mode switch hand back to the client.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}
