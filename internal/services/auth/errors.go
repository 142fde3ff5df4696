package auth

import (
	"errors"

	"amlguard/internal/repositories"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrSessionExpired     = errors.New("session expired")
	ErrUserNotFound       = repositories.ErrUserNotFound
	ErrUsernameTaken      = repositories.ErrUsernameTaken
)
