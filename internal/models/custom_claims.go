package models

import "github.com/golang-jwt/jwt/v5"

// CustomClaims are the claims carried by the auth provider's session token.
// The subject is the provider's user id.
type CustomClaims struct {
	jwt.RegisteredClaims
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}
