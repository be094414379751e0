package domain

import "time"

// UserRole separates administrators from standard members.
type UserRole string

const (
	UserRoleAdmin    UserRole = "admin"
	UserRoleStandard UserRole = "standard_member"
)

// User is the domain model for registered members.
type User struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	Age          int
	Role         UserRole
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}
