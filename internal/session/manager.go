// Package session issues and validates session tokens, and hosts the
// liveness monitor that re-checks a session's backing account.
//
// A session is a claim, not a live capability: validation is local and
// network-free, and revocation is enforced out-of-band by the Monitor.
// Tokens are HMAC-signed so a client cannot forge one, which is the only
// hardening over a plain encoded blob; claims stay readable.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/cloudchat-app/cloudchat/internal/accounts"
	"github.com/cloudchat-app/cloudchat/internal/common"
	"github.com/cloudchat-app/cloudchat/internal/cryptox"
	"github.com/golang-jwt/jwt/v5"
)

// Session is the decoded, validated claim set.
type Session struct {
	AccountID string
	Username  string
	Role      accounts.Role
	ExpiresAt time.Time
}

// Claims is the JWT payload: the registered claims plus the account identity.
type Claims struct {
	jwt.RegisteredClaims
	AccountID string `json:"accountId"`
	Username  string `json:"username"`
	Role      string `json:"role"`
}

type Manager struct {
	accounts *accounts.Service
	secret   []byte
	ttl      time.Duration
}

func NewManager(accounts *accounts.Service, secret []byte, ttl time.Duration) *Manager {
	return &Manager{accounts: accounts, secret: secret, ttl: ttl}
}

// Authenticate resolves the account by username and verifies the secret.
// A paused account is reported as suspended, distinct from bad credentials,
// so the caller can message it appropriately. On success it returns the
// session and its signed token.
func (m *Manager) Authenticate(ctx context.Context, username, secret string) (*Session, string, error) {
	acc, err := m.accounts.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, "", common.ErrInvalidCredentials
		}
		return nil, "", err
	}

	if acc.Status == accounts.StatusPaused {
		return nil, "", common.ErrAccountSuspended
	}

	if !cryptox.VerifySecret(acc.Secret, secret) {
		return nil, "", common.ErrInvalidCredentials
	}

	expiry := time.Now().Add(m.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
		AccountID: acc.ID,
		Username:  acc.Username,
		Role:      string(acc.Role),
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return nil, "", err
	}

	return &Session{
		AccountID: acc.ID,
		Username:  acc.Username,
		Role:      acc.Role,
		ExpiresAt: expiry,
	}, signed, nil
}

// Validate checks the token signature and expiry locally, without any
// network call. Invalid, forged, or expired tokens fail with
// common.ErrInvalidToken.
func (m *Manager) Validate(tokenString string) (*Session, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, common.ErrInvalidToken
	}
	// a well-signed token without exp is still not one of ours
	if claims.ExpiresAt == nil {
		return nil, common.ErrInvalidToken
	}

	return &Session{
		AccountID: claims.AccountID,
		Username:  claims.Username,
		Role:      accounts.Role(claims.Role),
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
