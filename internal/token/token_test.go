package token

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	iss := NewIssuer([]byte("test-secret"), 24*time.Hour)

	tok, err := iss.Issue(42)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	claims, err := iss.Verify(tok)
	require.NoError(t, err)

	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, 42, id)

	assert.WithinDuration(t, time.Now(), claims.IssuedAt.Time, 5*time.Second)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), claims.ExpiresAt.Time, 5*time.Second)
	assert.NotEmpty(t, claims.ID, "each token carries a unique jti")
}

func TestVerifyExpired(t *testing.T) {
	iss := NewIssuer([]byte("test-secret"), -time.Minute)

	tok, err := iss.Issue(1)
	require.NoError(t, err)

	_, err = iss.Verify(tok)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyTampered(t *testing.T) {
	iss := NewIssuer([]byte("test-secret"), time.Hour)

	tok, err := iss.Issue(1)
	require.NoError(t, err)

	// Flip a byte inside the payload segment; the signature no longer matches.
	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	_, err = iss.Verify(tampered)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrExpired)
}

func TestVerifyWrongSecret(t *testing.T) {
	tok, err := NewIssuer([]byte("secret-a"), time.Hour).Issue(1)
	require.NoError(t, err)

	_, err = NewIssuer([]byte("secret-b"), time.Hour).Verify(tok)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestVerifyMalformed(t *testing.T) {
	iss := NewIssuer([]byte("test-secret"), time.Hour)

	for _, tok := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		_, err := iss.Verify(tok)
		assert.ErrorIs(t, err, ErrMalformed, "token %q", tok)
	}
}

func TestVerifyTruncated(t *testing.T) {
	iss := NewIssuer([]byte("test-secret"), time.Hour)

	tok, err := iss.Issue(7)
	require.NoError(t, err)

	_, err = iss.Verify(tok[:len(tok)-10])
	assert.Error(t, err)
}
