package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the shortest HS256 secret the codec accepts.
const MinSecretLength = 16

type CodecConfig struct {
	Issuer        string
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration // default: DefaultAccessTokenTTL
	RefreshTTL    time.Duration // default: DefaultRefreshTokenTTL
}

// Codec signs and verifies HS256 access and refresh tokens. Each kind has its
// own secret so a leaked access secret cannot mint refresh tokens.
type Codec struct {
	issuer        string
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewCodec(cfg CodecConfig) (*Codec, error) {
	if len(cfg.AccessSecret) < MinSecretLength || len(cfg.RefreshSecret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, ErrSharedSecret
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTokenTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTokenTTL
	}

	return &Codec{
		issuer:        cfg.Issuer,
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		now:           time.Now,
	}, nil
}

// WithClock returns a copy of the codec reading time from now.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	cp := *c
	cp.now = now
	return &cp
}

func (c *Codec) AccessTTL() time.Duration  { return c.accessTTL }
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

func (c *Codec) IssueAccessToken(userID, email string) (string, error) {
	claims := newClaims(userID, email, KindAccess, c.accessTTL, c.issuer, c.now().UTC())
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.accessSecret)
}

func (c *Codec) IssueRefreshToken(userID string) (string, error) {
	claims := newClaims(userID, "", KindRefresh, c.refreshTTL, c.issuer, c.now().UTC())
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.refreshSecret)
}

// Verify validates a token of the given kind. Expiry is reported as
// ErrExpired; anything else wraps ErrInvalid.
func (c *Codec) Verify(token string, kind Kind) (Claims, error) {
	secret := c.accessSecret
	if kind == KindRefresh {
		secret = c.refreshSecret
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Claims{}, fmt.Errorf("%w: %w", ErrInvalid, ErrMalformed)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, fmt.Errorf("%w: %w", ErrInvalid, ErrInvalidSig)
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return Claims{}, fmt.Errorf("%w: %w", ErrInvalid, ErrNotYetValid)
		default:
			return Claims{}, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	}

	if claims.Kind != kind {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalid, ErrWrongKind)
	}
	if err := claims.ValidateIssuer(c.issuer); err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if claims.Subject == "" {
		return Claims{}, fmt.Errorf("%w: missing subject", ErrInvalid)
	}

	return claims, nil
}
