package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CollaboratorClaims represents the data stored in a collaborator access link
type CollaboratorClaims struct {
	EventID int    `json:"eventId"`
	Name    string `json:"name"`
	jwt.RegisteredClaims
}

// GenerateCollaboratorToken creates a signed access token for a collaborator
// link. The jti makes every issued token unique, so the token doubles as the
// collaborator's lookup key.
func GenerateCollaboratorToken(eventID int, name, secret string) (string, error) {
	claims := CollaboratorClaims{
		EventID: eventID,
		Name:    name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.NewString(),
			IssuedAt: jwt.NewNumericDate(time.Now()),
			Issuer:   "invitation-platform",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyCollaboratorToken parses and verifies a collaborator access token
func VerifyCollaboratorToken(tokenString, secret string) (*CollaboratorClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CollaboratorClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*CollaboratorClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// GenerateSecureToken generates a URL-safe random token of the given byte length
func GenerateSecureToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
