// Package auth issues and verifies the credentials of the account service:
// bcrypt password digests and HS256 JWT access/refresh tokens.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/accounthub/internal/common"
	"github.com/dmitrijs2005/accounthub/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind selects the secret, lifetime and audience of a token.
type TokenKind int

const (
	AccessToken TokenKind = iota
	RefreshToken
)

func (k TokenKind) String() string {
	switch k {
	case AccessToken:
		return "access"
	case RefreshToken:
		return "refresh"
	default:
		return "unknown"
	}
}

// KeyConfig is the signing secret and validity period for one token kind.
type KeyConfig struct {
	Secret []byte
	TTL    time.Duration
}

// Claims is the payload of both token kinds. The account id travels in the
// subject; profile fields are only set on access tokens.
type Claims struct {
	jwt.RegisteredClaims
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	FullName string `json:"fullName,omitempty"`
}

// AccountID returns the id of the account the token was issued to.
func (c *Claims) AccountID() string {
	return c.Subject
}

// Issuer signs and verifies tokens. It holds no mutable state and is safe
// for concurrent use.
type Issuer struct {
	access  KeyConfig
	refresh KeyConfig
	now     func() time.Time
}

// IssuerOption customizes an Issuer.
type IssuerOption func(*Issuer)

// WithClock replaces the time source used for issuing and verifying.
func WithClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) { i.now = now }
}

// NewIssuer builds an Issuer with separate settings per token kind.
func NewIssuer(access, refresh KeyConfig, opts ...IssuerOption) *Issuer {
	i := &Issuer{access: access, refresh: refresh, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// IssueAccess mints a short-lived token carrying the account's public identity.
func (i *Issuer) IssueAccess(a *models.Account) (string, error) {
	claims := i.registered(a.ID, AccessToken)
	return i.sign(AccessToken, Claims{
		RegisteredClaims: claims,
		Email:            a.Email,
		Username:         a.Username,
		FullName:         a.FullName,
	})
}

// IssueRefresh mints a long-lived token that only names the account.
func (i *Issuer) IssueRefresh(accountID string) (string, error) {
	return i.sign(RefreshToken, Claims{RegisteredClaims: i.registered(accountID, RefreshToken)})
}

// IssuePair mints an access and a refresh token for a.
func (i *Issuer) IssuePair(a *models.Account) (*models.TokenPair, error) {
	access, err := i.IssueAccess(a)
	if err != nil {
		return nil, err
	}
	refresh, err := i.IssueRefresh(a.ID)
	if err != nil {
		return nil, err
	}
	return &models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Verify checks the signature, expiry and kind of tokenString.
// It returns common.ErrTokenExpired for an expired but otherwise valid token
// and common.ErrInvalidToken for everything else.
func (i *Issuer) Verify(tokenString string, kind TokenKind) (*Claims, error) {
	key := i.key(kind)
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return key.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithAudience(kind.String()),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

func (i *Issuer) key(kind TokenKind) KeyConfig {
	if kind == RefreshToken {
		return i.refresh
	}
	return i.access
}

// registered fills the standard claims. The random jti keeps two tokens
// issued to the same account within one second distinct.
func (i *Issuer) registered(accountID string, kind TokenKind) jwt.RegisteredClaims {
	now := i.now()
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   accountID,
		Audience:  jwt.ClaimStrings{kind.String()},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.key(kind).TTL)),
	}
}

func (i *Issuer) sign(kind TokenKind, claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.key(kind).Secret)
}
