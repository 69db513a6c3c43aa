package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a user's part in the support platform.
type Role string

const (
	RoleSeeker Role = "seeker"
	RoleHelper Role = "helper"
)

// ValidRole reports whether s names a known role.
func ValidRole(s string) bool {
	return s == string(RoleSeeker) || s == string(RoleHelper)
}

// User represents a platform user.
type User struct {
	ID               uuid.UUID  `json:"id"`
	Email            string     `json:"email"`
	Password         string     `json:"-"`
	FirstName        string     `json:"first_name"`
	LastName         string     `json:"last_name"`
	Role             Role       `json:"role"`
	ResetCode        string     `json:"-"`
	ResetCodeExpires *time.Time `json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// FullName returns the user's display name.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// ToPublic strips sensitive fields.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
