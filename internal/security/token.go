package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"telecare-backend/internal/domain"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token has expired")
	ErrWrongTokenType = errors.New("wrong token type for this endpoint")
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// UserClaims defines the standard claims for our application
type UserClaims struct {
	UserID string          `json:"user_id"`
	Email  string          `json:"email,omitempty"`
	Role   domain.UserRole `json:"role,omitempty"`
	Type   TokenType       `json:"type"`
	jwt.RegisteredClaims
}

type TokenManager interface {
	GenerateAccessToken(userID, email string, role domain.UserRole) (string, error)
	GenerateRefreshToken(userID, email string) (string, error)
	ValidateAccessToken(token string) (*UserClaims, error)
	ValidateRefreshToken(token string) (*UserClaims, error)
}

type tokenManager struct {
	secret        []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

func NewTokenManager(secret string, accessExpiryMinutes, refreshExpiryMinutes int) TokenManager {
	if accessExpiryMinutes <= 0 {
		accessExpiryMinutes = 15
	}
	if refreshExpiryMinutes <= 0 {
		refreshExpiryMinutes = 60 * 24 * 7
	}
	return &tokenManager{
		secret:        []byte(secret),
		accessExpiry:  time.Duration(accessExpiryMinutes) * time.Minute,
		refreshExpiry: time.Duration(refreshExpiryMinutes) * time.Minute,
	}
}

func (m *tokenManager) GenerateAccessToken(userID, email string, role domain.UserRole) (string, error) {
	return m.generate(UserClaims{
		UserID: userID,
		Email:  email,
		Role:   role,
		Type:   TokenTypeAccess,
	}, m.accessExpiry)
}

func (m *tokenManager) GenerateRefreshToken(userID, email string) (string, error) {
	return m.generate(UserClaims{
		UserID: userID,
		Email:  email,
		Type:   TokenTypeRefresh,
	}, m.refreshExpiry)
}

func (m *tokenManager) generate(claims UserClaims, expiry time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *tokenManager) ValidateAccessToken(token string) (*UserClaims, error) {
	return m.validate(token, TokenTypeAccess)
}

func (m *tokenManager) ValidateRefreshToken(token string) (*UserClaims, error) {
	return m.validate(token, TokenTypeRefresh)
}

func (m *tokenManager) validate(tokenStr string, expected TokenType) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &UserClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != expected {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}
