package models

import "time"

// UserRole enumerates account roles.
type UserRole string

const (
	RolePatient  UserRole = "PATIENT"
	RoleDoctor   UserRole = "DOCTOR"
	RoleHospital UserRole = "HOSPITAL"
	RoleAdmin    UserRole = "ADMIN"
)

// Valid reports whether the role is one of the known values.
func (r UserRole) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleHospital, RoleAdmin:
		return true
	}
	return false
}

// User is an authenticated account. Patient and doctor profiles reference a
// user by ID.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FullName     string    `db:"full_name" json:"full_name"`
	Role         UserRole  `db:"role" json:"role"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// UserInfo is the trimmed user payload embedded in auth responses.
type UserInfo struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	Role     UserRole `json:"role"`
}
