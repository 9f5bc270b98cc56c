// Package token implements the bearer token codec: HS256-signed JWTs whose
// subject is the username and whose expiry is embedded in the token.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/islab/coordinates-registry/internal/core/domain"
)

const defaultTTL = 24 * time.Hour

// Claims is the payload carried by every issued token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Codec issues and inspects tokens. It keeps no server-side state.
type Codec struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewCodec returns a Codec signing with secret. A non-positive ttl falls back
// to 24h. An empty issuer disables the issuer check.
func NewCodec(secret string, ttl time.Duration, issuer string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("token: empty signing secret")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Codec{secret: []byte(secret), ttl: ttl, issuer: issuer, now: time.Now}, nil
}

// Issue signs a token for username valid for the configured ttl.
func (c *Codec) Issue(username string, role domain.Role) (string, time.Time, error) {
	now := c.now()
	exp := now.Add(c.ttl)
	claims := Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Validate reports whether token is well formed, signed with our secret using
// HS256, carries an expiry, and has not expired.
func (c *Codec) Validate(token string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	if token == "" {
		return false
	}
	_, err := c.parse(token, true)
	return err == nil
}

// Subject returns the username claim. The signature is checked, time claims
// are not.
func (c *Codec) Subject(token string) (string, error) {
	claims, err := c.parse(token, false)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ExpiresAt returns the embedded expiry.
func (c *Codec) ExpiresAt(token string) (time.Time, error) {
	claims, err := c.parse(token, false)
	if err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, errors.New("token: missing exp claim")
	}
	return claims.ExpiresAt.Time, nil
}

func (c *Codec) parse(token string, validateClaims bool) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
	}
	if validateClaims {
		opts = append(opts, jwt.WithExpirationRequired())
		if c.issuer != "" {
			opts = append(opts, jwt.WithIssuer(c.issuer))
		}
	} else {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	claims := &Claims{}
	if _, err := jwt.ParseWithClaims(token, claims, c.keyFunc, opts...); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return claims, nil
}

func (c *Codec) keyFunc(t *jwt.Token) (interface{}, error) {
	if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	return c.secret, nil
}
