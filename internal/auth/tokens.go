package auth

import (
	"encoding/json/v2"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"

	"github.com/kobink/kobink-server/internal/id"
)

const (
	tokenIssuer   = "kobink-server"
	tokenAudience = "kobo-device"
)

// TokenService handles PASETO token generation and verification.
// Tokens carry no expiry: they are valid for as long as the key (the process) lives.
type TokenService struct {
	symmetricKey paseto.V4SymmetricKey
}

// NewTokenService creates a token service from a 32-byte key.
func NewTokenService(key []byte) (*TokenService, error) {
	if len(key) != keyLength {
		return nil, fmt.Errorf("PASETO v4 key must be exactly %d bytes, got %d", keyLength, len(key))
	}

	symmetricKey, err := paseto.V4SymmetricKeyFromBytes(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create PASETO symmetric key: %w", err)
	}

	return &TokenService{symmetricKey: symmetricKey}, nil
}

// Issue creates a new PASETO v4.local token bound to a device.
func (s *TokenService) Issue(deviceID, userKey string) (string, error) {
	now := time.Now()

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetSubject(deviceID)
	token.SetAudience(tokenAudience)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)

	tokenID, err := id.Generate("tok")
	if err != nil {
		return "", fmt.Errorf("generate token ID: %w", err)
	}
	token.SetJti(tokenID)

	//nolint:errcheck // Token.Set only errors on invalid types, which we control
	_ = token.Set("device_id", deviceID)
	//nolint:errcheck // Token.Set only errors on invalid types, which we control
	_ = token.Set("user_key", userKey)

	return token.V4Encrypt(s.symmetricKey, nil), nil
}

// Verify decrypts a token and returns its claims.
func (s *TokenService) Verify(tokenString string) (*DeviceClaims, error) {
	parser := paseto.NewParserWithoutExpiryCheck()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))

	token, err := parser.ParseV4Local(s.symmetricKey, tokenString, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	var claims DeviceClaims
	if err := json.Unmarshal(token.ClaimsJSON(), &claims); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}
	if claims.DeviceID == "" {
		return nil, fmt.Errorf("invalid token: missing device_id")
	}

	return &claims, nil
}

// DeviceOf verifies a token and returns the device it was issued to.
func (s *TokenService) DeviceOf(tokenString string) (string, error) {
	claims, err := s.Verify(tokenString)
	if err != nil {
		return "", err
	}
	return claims.DeviceID, nil
}
