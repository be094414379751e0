package dto

import "time"

// UserRegisterRequest payload for new members.
type UserRegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	PhoneNum string `json:"phoneNum"`
	Age      int    `json:"age"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

// UserLoginRequest payload for login.
type UserLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserUpdateRequest payload; pointer fields carry explicit presence.
type UserUpdateRequest struct {
	Name     *string `json:"name"`
	PhoneNum *string `json:"phoneNum"`
	Age      *int    `json:"age"`
	Role     *string `json:"role"`
	Password *string `json:"password"`
}

// UserResponse is the public user shape; the password hash never leaves.
type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	PhoneNum  string    `json:"phoneNum"`
	Age       int       `json:"age"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PasswordResetRequest payload.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// PasswordResetConfirmRequest payload.
type PasswordResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
