package auth

import (
	"time"
)

// DeviceClaims represents the claims stored in a device access token.
// These are encrypted in v4.local tokens, so they're not readable without the key.
type DeviceClaims struct {
	DeviceID string `json:"device_id"`
	UserKey  string `json:"user_key"`

	// Standard PASETO claims
	Issuer   string    `json:"iss"`
	Subject  string    `json:"sub"`
	Audience string    `json:"aud"`
	IssuedAt time.Time `json:"iat"`
	TokenID  string    `json:"jti"`
}
