// Package token issues and verifies the signed session tokens carried by
// clients on every protected request. Tokens are stateless: nothing is stored
// server-side, so a token stays valid until its expiry.
package token

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Verification failures, ordered by how early the check fails. The session
// guard collapses all of them to a single 401 for the client; the distinction
// exists for server-side logs.
var (
	ErrMalformed    = errors.New("token malformed")
	ErrBadSignature = errors.New("token signature invalid")
	ErrExpired      = errors.New("token expired")
)

// Claims are the signed contents of a session token. Subject holds the user id.
type Claims struct {
	jwt.RegisteredClaims
}

// UserID returns the subject claim as an integer user id.
func (c *Claims) UserID() (int, error) {
	id, err := strconv.Atoi(c.Subject)
	if err != nil || id <= 0 {
		return 0, ErrMalformed
	}
	return id, nil
}

// Issuer creates and verifies HS256 session tokens with a fixed lifetime.
// The secret and lifetime are injected at construction so verification is a
// pure function of (token, secret, now).
type Issuer struct {
	secret   []byte
	lifetime time.Duration
}

func NewIssuer(secret []byte, lifetime time.Duration) *Issuer {
	return &Issuer{secret: secret, lifetime: lifetime}
}

// Issue signs a token for the given user id with iat=now and exp=now+lifetime.
func (i *Issuer) Issue(userID int) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.lifetime)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Verify parses and validates a token string. The signature is checked before
// any claim is trusted; expiry is checked against the server clock with no
// leeway. On failure it returns one of ErrMalformed, ErrBadSignature or
// ErrExpired.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrBadSignature
		}
		return i.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrBadSignature
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		default:
			return nil, ErrMalformed
		}
	}
	if !tok.Valid {
		return nil, ErrBadSignature
	}
	return claims, nil
}
