package dto

import dom "qrstudio/internal/domain"

// LoginRequest is the JSON body for POST /api/auth/login. Username may also
// hold the account email.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest is the JSON body for POST /api/auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserResponse wraps the public projection of the logged-in user.
type UserResponse struct {
	Success bool         `json:"success"`
	User    dom.Identity `json:"user"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

type OKResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
