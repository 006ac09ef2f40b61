package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// SessionCookieName is the HTTP-only cookie carrying the session token.
	SessionCookieName = "auth_token"

	// RoleStaff is the only role ever bound into a session token.
	RoleStaff = "staff"

	defaultSessionTTL = 24 * time.Hour
)

var (
	ErrMissingSigningSecret = errors.New("auth: signing secret required")
	ErrMissingSubject       = errors.New("auth: player identity required")
	ErrInvalidSessionToken  = errors.New("auth: invalid session token")
)

// SessionClaims is the JWT payload bound at login. Possession of a valid,
// unexpired token is the sole authorization mechanism; there is no server-side
// session store, so the claims are a point-in-time snapshot of the roster row.
type SessionClaims struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IssuerConfig configures session token issuance and verification.
type IssuerConfig struct {
	SigningSecret []byte
	TTL           time.Duration
	Clock         func() time.Time
}

// Issuer signs and verifies HS256 session tokens.
type Issuer struct {
	signingSecret []byte
	ttl           time.Duration
	clock         func() time.Time
}

// NewIssuer constructs an Issuer with sane defaults.
func NewIssuer(cfg IssuerConfig) (*Issuer, error) {
	if len(cfg.SigningSecret) == 0 {
		return nil, ErrMissingSigningSecret
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Issuer{
		signingSecret: append([]byte(nil), cfg.SigningSecret...),
		ttl:           ttl,
		clock:         clock,
	}, nil
}

// TTL returns the configured token lifetime, which is also the cookie max-age.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue produces a signed session token binding the Discord id and player name
// under the staff role.
func (i *Issuer) Issue(discordID, playerName string) (string, error) {
	if strings.TrimSpace(discordID) == "" || strings.TrimSpace(playerName) == "" {
		return "", ErrMissingSubject
	}

	now := i.clock().UTC()
	claims := SessionClaims{
		ID:   discordID,
		Name: playerName,
		Role: RoleStaff,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   discordID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.signingSecret)
}

// Verify validates the signature and expiry of a session token and returns the
// bound claims. Every failure mode collapses into ErrInvalidSessionToken so
// handlers surface a uniform unauthorized response.
func (i *Issuer) Verify(tokenString string) (SessionClaims, error) {
	trimmed := strings.TrimSpace(tokenString)
	if trimmed == "" {
		return SessionClaims{}, ErrInvalidSessionToken
	}

	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(
		trimmed,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, fmt.Errorf("%w: unexpected signing algorithm %s", ErrInvalidSessionToken, t.Method.Alg())
			}
			return i.signingSecret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.clock),
	)
	if err != nil {
		return SessionClaims{}, fmt.Errorf("%w: %v", ErrInvalidSessionToken, err)
	}
	if parsed == nil || !parsed.Valid {
		return SessionClaims{}, ErrInvalidSessionToken
	}
	if strings.TrimSpace(claims.ID) == "" || strings.TrimSpace(claims.Name) == "" {
		return SessionClaims{}, ErrInvalidSessionToken
	}
	return *claims, nil
}
