// internal/auth/session.go
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrMissingToken is returned when no bearer credential was supplied.
	ErrMissingToken = errors.New("no token provided")
	// ErrInvalidToken is returned for malformed, expired or wrongly signed tokens.
	ErrInvalidToken = errors.New("invalid token")
)

// Verifier checks HS256 tokens issued by the account service, which shares the signing secret.
type Verifier struct {
	secret []byte
}

// NewVerifier returns a Verifier for tokens signed with secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	token := strings.TrimSpace(header)
	if len(token) >= len("Bearer") && strings.EqualFold(token[:len("Bearer")], "Bearer") {
		token = strings.TrimSpace(token[len("Bearer"):])
	}
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// CreateJWT signs a token for userID. ttl <= 0 means the token never expires.
func (v *Verifier) CreateJWT(userID uuid.UUID, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"sub":     userID.String(),
	}
	if ttl > 0 {
		claims["exp"] = time.Now().Add(ttl).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// AuthenticateJWT verifies tokenString and returns the participant it was issued to.
// The participant is read from "user_id", falling back to "sub".
func (v *Verifier) AuthenticateJWT(tokenString string) (uuid.UUID, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !t.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: unexpected claims", ErrInvalidToken)
	}

	raw, ok := claims["user_id"].(string)
	if !ok || raw == "" {
		raw, ok = claims["sub"].(string)
	}
	if !ok || raw == "" {
		return uuid.Nil, fmt.Errorf("%w: missing user_id", ErrInvalidToken)
	}

	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed user_id: %v", ErrInvalidToken, err)
	}
	return userID, nil
}
