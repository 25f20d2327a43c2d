package dto

import "time"

// RegisterOperatorRequest payload.
type RegisterOperatorRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RequesterTokenRequest payload.
type RequesterTokenRequest struct {
	RequesterID string `json:"requester_id"`
}

// TokenResponse carries an issued access token.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// OperatorResponse describes a roster entry.
type OperatorResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Active      bool   `json:"active"`
}
