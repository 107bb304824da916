package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)

type User struct {
	ID           uuid.UUID       `json:"id"`
	Email        string          `json:"email"`
	PasswordHash *string         `json:"-"`
	Name         string          `json:"name"`
	AvatarURL    *string         `json:"avatarUrl"`
	GoogleID     *string         `json:"-"`
	Preferences  UserPreferences `json:"preferences"`
	IsActive     bool            `json:"isActive"`
	LastLoginAt  *time.Time      `json:"lastLoginAt"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

type UserPreferences struct {
	Theme              string `json:"theme"`
	EmailNotifications bool   `json:"emailNotifications"`
}

func DefaultPreferences() UserPreferences {
	return UserPreferences{Theme: ThemeSystem, EmailNotifications: true}
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=128,containsany=0123456789"`
	Name     string `json:"name" validate:"required,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type GoogleLoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

type UpdateProfileRequest struct {
	Name        *string             `json:"name" validate:"omitempty,min=1,max=100"`
	Preferences *PreferencesRequest `json:"preferences"`
}

type PreferencesRequest struct {
	Theme              *string `json:"theme" validate:"omitempty,oneof=light dark system"`
	EmailNotifications *bool   `json:"emailNotifications"`
}

// Apply merges the non-nil fields into p.
func (r *PreferencesRequest) Apply(p UserPreferences) UserPreferences {
	if r == nil {
		return p
	}
	if r.Theme != nil {
		p.Theme = *r.Theme
	}
	if r.EmailNotifications != nil {
		p.EmailNotifications = *r.EmailNotifications
	}
	return p
}

type TokenPair struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

type AuthResult struct {
	User *User `json:"user"`
	TokenPair
}
