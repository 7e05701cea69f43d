package auth

// RegisterRequest is the payload for account registration. Password strength
// beyond presence is checked by ValidatePasswordStrength.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginRequest is the payload for credential login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileRequest carries optional profile changes.
type UpdateProfileRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
}

// ChangePasswordRequest carries a password rotation.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

// VerifyTokenRequest validates an externally held token.
type VerifyTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// AuthResponse pairs an account with a freshly issued token.
type AuthResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}
