package dto

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Email     string  `json:"email"`
	Phone     string  `json:"phone"`
	Password  string  `json:"password"`
	PhotoPath *string `json:"photoPath,omitempty"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	FullName  string  `json:"fullName"`
	Email     string  `json:"email"`
	Token     string  `json:"token"`
	PhotoPath *string `json:"photoPath,omitempty"`
}
