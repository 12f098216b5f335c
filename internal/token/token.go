package token

import (
	"errors"
	"time"

	"github.com/cakely/auth-service/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// Service issues and verifies HS256 session tokens. Validity is purely
// cryptographic: there is no server-side session table, so a token stays
// valid until its own expiry elapses.
type Service struct {
	key []byte
	ttl time.Duration
}

func NewService(key []byte, ttl time.Duration) *Service {
	return &Service{key: key, ttl: ttl}
}

// Issue signs a token embedding the user id and an expiry ttl from now.
func (s *Service) Issue(userID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.key)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Verify returns the embedded user id, or domain.ErrTokenInvalid when the
// signature does not match, the payload is malformed, or the token expired.
func (s *Service) Verify(raw string) (string, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.key, nil
	})
	if err != nil || !token.Valid {
		return "", domain.ErrTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", domain.ErrTokenInvalid
	}

	userID, ok := claims["sub"].(string)
	if !ok || userID == "" {
		return "", domain.ErrTokenInvalid
	}
	return userID, nil
}

// TTL is the lifetime given to issued tokens. The session cookie shares it.
func (s *Service) TTL() time.Duration {
	return s.ttl
}
