package domain

import (
	"errors"
	"time"
)

const (
	RoleAdmin    = "admin"
	RoleCourier  = "courier"
	RoleCustomer = "customer"
)

var ErrUserNotFound = errors.New("user not found")
var ErrUserExists = errors.New("user already exists")
var ErrInvalidCredentials = errors.New("invalid credentials")

// User models an authenticated actor in the system.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	FullName     string     `json:"full_name,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// Actor is the identity attached to a request after authentication.
type Actor struct {
	UserID string
	Role   string
}

// CanAdvanceStatus reports whether a role is allowed to advance package
// status outside the payment path.
func CanAdvanceStatus(role string) bool {
	return role == RoleAdmin || role == RoleCourier
}

// ValidRole reports whether a role string is one of the known roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleCourier || role == RoleCustomer
}
