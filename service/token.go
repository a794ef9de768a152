package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidTokenFormat is returned when the token does not have exactly two parts separated by ".".
var ErrInvalidTokenFormat = errors.New("invalid token format: expected base64(payload).base64(signature)")

// ErrInvalidSignature is returned when the token signature does not match the expected HMAC-SHA256.
var ErrInvalidSignature = errors.New("invalid token signature")

// ErrTokenExpired is returned when a correctly signed token is past its expires_at.
var ErrTokenExpired = errors.New("token expired")

// TokenClaims is the access token payload. Subject is the identity provider id.
type TokenClaims struct {
	Subject   string `json:"sub"`
	ExpiresAt string `json:"expires_at"` // RFC3339
	IssuedAt  string `json:"issued_at"`  // RFC3339
}

// CreateToken builds "base64(payload).base64(HMAC-SHA256(secret, payload))". The API server
// issues tokens; the instance server only verifies them, so this is used by tests and tooling.
func CreateToken(subject string, expiresAt, issuedAt time.Time, secret []byte) (string, error) {
	claims := TokenClaims{
		Subject:   subject,
		ExpiresAt: expiresAt.Format(time.RFC3339),
		IssuedAt:  issuedAt.Format(time.RFC3339),
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshal claims: %w", err)
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)

	return base64.StdEncoding.EncodeToString(payload) + "." + base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// ParseAndVerify decodes the token and verifies its signature. Expiry is not checked here.
func ParseAndVerify(token string, secret []byte) (TokenClaims, error) {
	var zero TokenClaims
	parts := strings.SplitN(token, ".", 3)
	if len(parts) != 2 {
		return zero, ErrInvalidTokenFormat
	}

	payload, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return zero, fmt.Errorf("decode payload: %w", err)
	}
	receivedSig, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return zero, fmt.Errorf("decode signature: %w", err)
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	if subtle.ConstantTimeCompare(receivedSig, mac.Sum(nil)) != 1 {
		return zero, ErrInvalidSignature
	}

	var claims TokenClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return zero, fmt.Errorf("unmarshal claims: %w", err)
	}
	return claims, nil
}

// CheckExpiry returns ErrTokenExpired when now is at or past the claims' expires_at.
func (c TokenClaims) CheckExpiry(now time.Time) error {
	expiresAt, err := time.Parse(time.RFC3339, c.ExpiresAt)
	if err != nil {
		return fmt.Errorf("parse expires_at: %w", err)
	}
	if !now.Before(expiresAt) {
		return ErrTokenExpired
	}
	return nil
}
