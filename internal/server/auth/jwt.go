// Package auth implements the token service: issuance and verification of
// short-lived access tokens and long-lived refresh tokens. Both kinds are
// self-contained HS256 JWTs; each kind is signed with its own secret so a
// leaked access token cannot be replayed as a refresh token.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/postboard/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Token types carried in the claim set.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims is the signed payload of both token kinds.
type Claims struct {
	jwt.RegisteredClaims
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	TokenType string `json:"type"`
}

// Identity is the decoded subject of a successfully verified token.
type Identity struct {
	UserID string
	Email  string
}

// Manager issues and verifies token pairs. Access and refresh secrets must
// differ; TTLs are short for access and long for refresh.
type Manager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewManager(accessSecret, refreshSecret []byte, accessTTL, refreshTTL time.Duration) *Manager {
	return &Manager{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (m *Manager) issue(userID, email, tokenType string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:    userID,
		Email:     email,
		TokenType: tokenType,
	})
	return token.SignedString(secret)
}

// IssueAccessToken signs an access token for the given subject.
func (m *Manager) IssueAccessToken(userID, email string) (string, error) {
	return m.issue(userID, email, TokenTypeAccess, m.accessSecret, m.accessTTL)
}

// IssueRefreshToken signs a refresh token for the given subject.
func (m *Manager) IssueRefreshToken(userID, email string) (string, error) {
	return m.issue(userID, email, TokenTypeRefresh, m.refreshSecret, m.refreshTTL)
}

// verify validates signature, expiry and token type. Failures come back as
// common.ErrTokenExpired or common.ErrInvalidToken; callers treat both as a
// normal rejection, not a fatal condition.
func (m *Manager) verify(tokenString, wantType string, secret []byte) (*Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, common.ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.TokenType != wantType {
		return nil, common.ErrInvalidToken
	}

	return &Identity{UserID: claims.UserID, Email: claims.Email}, nil
}

// VerifyAccessToken validates an access token against the access secret.
func (m *Manager) VerifyAccessToken(tokenString string) (*Identity, error) {
	return m.verify(tokenString, TokenTypeAccess, m.accessSecret)
}

// VerifyRefreshToken validates a refresh token against the refresh secret.
func (m *Manager) VerifyRefreshToken(tokenString string) (*Identity, error) {
	return m.verify(tokenString, TokenTypeRefresh, m.refreshSecret)
}
