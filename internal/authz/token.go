package authz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"taskmarket/internal/models"
)

const leeway = 2 * time.Minute

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is the signed access token payload. Permissions were resolved for
// Mode at issue time; a mode switch needs a new token.
type Claims struct {
	UserID      int64            `json:"user_id"`
	Mode        models.Mode      `json:"mode"`
	Roles       []models.RoleRef `json:"roles"`
	Permissions []string         `json:"permissions"`
	jwt.RegisteredClaims
}

func (c *Claims) PermissionSet() PermissionSet {
	return NewPermissionSet(c.Permissions...)
}

// RevocationStore remembers revoked token ids until they would have expired anyway.
type RevocationStore interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type Tokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
	store  RevocationStore
	now    func() time.Time
}

// NewTokens builds the signer/verifier. store may be nil, in which case
// revocation is a no-op and tokens live until they expire.
func NewTokens(secret, issuer string, ttl time.Duration, store RevocationStore) *Tokens {
	return &Tokens{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		store:  store,
		now:    time.Now,
	}
}

func (t *Tokens) WithClock(now func() time.Time) *Tokens {
	t.now = now
	return t
}

func (t *Tokens) Issue(userID int64, mode models.Mode, roles []models.RoleRef, perms PermissionSet) (string, *Claims, error) {
	if !mode.IsOperating() {
		return "", nil, fmt.Errorf("issue token: %w", models.ErrInvalidMode)
	}
	now := t.now()
	claims := &Claims{
		UserID:      userID,
		Mode:        mode,
		Roles:       roles,
		Permissions: perms.Keys(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    t.issuer,
			Subject:   fmt.Sprintf("%d", userID),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Parse verifies signature, issuer and expiry, then consults the revocation
// store. A store failure is returned as-is so callers can fail closed.
func (t *Tokens) Parse(ctx context.Context, raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		// HMAC only
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(leeway),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !claims.Mode.IsOperating() {
		return nil, fmt.Errorf("%w: mode %q", ErrInvalidToken, claims.Mode)
	}

	if t.store != nil && claims.ID != "" {
		revoked, err := t.store.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return nil, models.ErrTokenRevoked
		}
	}
	return claims, nil
}

// Revoke blacklists the token id for the rest of its lifetime.
func (t *Tokens) Revoke(ctx context.Context, claims *Claims) error {
	if t.store == nil || claims == nil || claims.ID == "" {
		return nil
	}
	ttl := leeway
	if claims.ExpiresAt != nil {
		ttl += claims.ExpiresAt.Time.Sub(t.now())
	}
	if ttl <= 0 {
		return nil
	}
	return t.store.Revoke(ctx, claims.ID, ttl)
}
