// Package auth issues and verifies the session tokens and password hashes
// used by the demo server.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"camdash/pkg/models"
)

// DefaultTTL is the lifetime of a session token.
const DefaultTTL = 24 * time.Hour

var (
	// ErrInvalidToken is returned for malformed, forged or expired tokens.
	ErrInvalidToken = errors.New("invalid session token")
	// ErrInvalidCredentials is returned when a password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Claims carried in a session token.
type Claims struct {
	UserID   int64       `json:"uid"`
	Username string      `json:"name"`
	Role     models.Role `json:"role"`
	jwt.RegisteredClaims
}

// User returns the identity encoded in the claims.
func (c *Claims) User() models.User {
	return models.User{ID: c.UserID, Username: c.Username, Role: c.Role}
}

// Signer issues HS256 session tokens.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSigner(secret []byte, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Signer{secret: secret, ttl: ttl, now: time.Now}
}

// Issue creates the session token for u.
func (s *Signer) Issue(u models.User) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Parse verifies tokenStr and returns its claims.
func (s *Signer) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares password against a hash from HashPassword.
func CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
