package models

import (
	"regexp"
	"strings"
	"time"
)

// UserRole represents the role of a user
type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleAdmin    UserRole = "admin"
)

// User represents a platform account. Authentication is handled by an external
// collaborator; this model carries the actor identity the engines need.
type User struct {
	ID        int       `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	Phone     string    `json:"phone" db:"phone"`
	Role      UserRole  `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

var userEmailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Validate validates the user data
func (u *User) Validate() error {
	if u.Email == "" {
		return &ValidationError{Field: "email", Message: "email is required"}
	}
	if !userEmailRegex.MatchString(u.Email) {
		return &ValidationError{Field: "email", Message: "email format is invalid"}
	}
	if strings.TrimSpace(u.Name) == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	switch u.Role {
	case RoleCustomer, RoleAdmin:
	default:
		return &ValidationError{Field: "role", Message: "invalid user role"}
	}
	return nil
}

// IsAdmin returns true if the user has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Actor is the identity context passed into every engine operation. Exactly
// one of User or Collaborator is set; admin actions require User with the
// admin role.
type Actor struct {
	User         *User
	Collaborator *Collaborator
}

// IsAdmin returns true if the actor is an admin user
func (a Actor) IsAdmin() bool {
	return a.User != nil && a.User.IsAdmin()
}

// IsCollaborator returns true if the actor is acting through a collaborator grant
func (a Actor) IsCollaborator() bool {
	return a.Collaborator != nil
}

// OwnerOf returns true if the actor is the owner of the given event
func (a Actor) OwnerOf(e *Event) bool {
	return a.User != nil && a.User.ID == e.OwnerID
}
