package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/scholaris-oas/scholaris/internal/shared"
)

const tokenIssuer = "scholaris"

// ErrRoleUnresolved signals a user without a resolvable role. That is a
// data-integrity problem upstream, not a credential failure.
var ErrRoleUnresolved = errors.New("auth: user role unresolved")

// Claims represents the session token payload.
type Claims struct {
	IDNumber string `json:"idNumber"`
	RoleID   int64  `json:"roleId"`
	RoleName string `json:"roleName"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies stateless session tokens.
type Issuer struct {
	secret      []byte
	ttl         time.Duration
	rememberTTL time.Duration
	now         func() time.Time
}

// NewIssuer constructs an Issuer with the shared signing secret.
func NewIssuer(secret string, ttl, rememberTTL time.Duration) *Issuer {
	return &Issuer{
		secret:      []byte(secret),
		ttl:         ttl,
		rememberTTL: rememberTTL,
		now:         time.Now,
	}
}

// TTL returns the token lifetime for the given remember flag.
func (i *Issuer) TTL(remember bool) time.Duration {
	if remember {
		return i.rememberTTL
	}
	return i.ttl
}

// Sign produces a signed session token for the user. The role must already be
// resolved; a missing role aborts issuance.
func (i *Issuer) Sign(user *User, role RoleRef, remember bool) (string, time.Time, error) {
	if user == nil {
		return "", time.Time{}, errors.New("auth: user required")
	}
	if role.ID == 0 || role.Name == "" {
		return "", time.Time{}, ErrRoleUnresolved
	}

	now := i.now().UTC()
	expiresAt := now.Add(i.TTL(remember))
	claims := Claims{
		IDNumber: user.IDNumber,
		RoleID:   role.ID,
		RoleName: role.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Parse verifies signature, expiry and issuer. Any failure maps to
// shared.ErrInvalidToken; callers never learn which check tripped.
func (i *Issuer) Parse(raw string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, shared.ErrInvalidToken
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now), jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, shared.ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, shared.ErrInvalidToken
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, shared.ErrInvalidToken
	}
	return claims, nil
}

// UserID returns the numeric subject of the claims.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.ErrInvalidToken
	}
	return id, nil
}
