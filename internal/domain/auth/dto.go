// internal/domain/auth/dto.go
package auth

import "concierge-service/internal/domain/business"

type RegisterRequest struct {
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=8"`
	BusinessName string `json:"businessName" binding:"required"`
	BusinessType string `json:"businessType"`
	Tier         string `json:"tier"`

	// Filled by the handler, not the client
	IPAddress string `json:"-"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`

	IPAddress string `json:"-"`
}

type LoginResponse struct {
	Token    string            `json:"token"`
	Business *business.Profile `json:"business"`
}

type AdminLoginResponse struct {
	Token string `json:"token"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
