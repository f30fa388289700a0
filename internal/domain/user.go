// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"

	"github.com/google/uuid"
)

const (
	MaxUserIDLen   = 36
	MaxUsernameLen = 36
)

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
	ErrUserIDTooLong   = errors.New("user id too long")
)

type UserID string

// Profile is the display metadata attached by the identity provider.
// The engine carries it opaquely; it never derives behavior from it.
type Profile struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

type User struct {
	ID      UserID  `json:"id"`
	Profile Profile `json:"profile"`
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
// Identity comes from the outside world, so both fields are length-capped.
func NewUser(id UserID, username, avatar string) (*User, error) {
	if len(id) > MaxUserIDLen {
		return nil, ErrUserIDTooLong
	}
	if len(username) == 0 {
		return nil, ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return nil, ErrUsernameTooLong
	}
	if id == "" {
		id = UserID(uuid.NewString())
	}
	return &User{ID: id, Profile: Profile{Username: username, Avatar: avatar}}, nil
}
