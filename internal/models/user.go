package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Username     string `gorm:"uniqueIndex;size:150;not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	Password     string `gorm:"not null"`
	FirstName    string
	LastName     string
	Department   string
	Role         string `gorm:"default:'analyst'"`
	TokenVersion int    `gorm:"default:1"`
	LastLoginAt  *time.Time
}

// UserView is the public shape of a user.
type UserView struct {
	ID          uint       `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Department  string     `json:"department"`
	Role        string     `json:"role"`
	Permissions []string   `json:"permissions"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

func (u *User) View() UserView {
	return UserView{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Department:  u.Department,
		Role:        u.Role,
		Permissions: GetDefaultPermissions(u.Role),
		LastLoginAt: u.LastLoginAt,
	}
}

// RegisterInput is the body of the registration request.
type RegisterInput struct {
	Username   string `json:"username" validate:"required,min=3,max=150,alphanum"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8"`
	FirstName  string `json:"first_name" validate:"max=150"`
	LastName   string `json:"last_name" validate:"max=150"`
	Department string `json:"department" validate:"max=150"`
}

// LoginInput is the body of the login request.
type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}
