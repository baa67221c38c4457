package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stuffkit/backend/internal/infrastructure/config"
)

const testSecret = "test-secret-key-at-least-32-chars"

func newTestTokenService(t *testing.T, at time.Time) *TokenService {
	t.Helper()
	svc, err := NewTokenService(config.AuthConfig{
		JWTSecret: testSecret,
		Issuer:    "test-issuer",
		TokenTTL:  15 * time.Minute,
	})
	require.NoError(t, err)
	svc.now = func() time.Time { return at }
	return svc
}

func TestNewTokenService(t *testing.T) {
	_, err := NewTokenService(config.AuthConfig{})
	assert.ErrorIs(t, err, ErrEmptySecret)

	svc, err := NewTokenService(config.AuthConfig{JWTSecret: "s"})
	require.NoError(t, err)
	assert.Equal(t, time.Hour, svc.TTL())
}

func TestIssueAndValidate(t *testing.T) {
	svc := newTestTokenService(t, time.Now())

	token, issued, err := svc.Issue("42", "ann", []string{"admin", "editor"})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.NotEmpty(t, issued.ID)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "ann", claims.Handle)
	assert.Equal(t, []string{"admin", "editor"}, claims.Roles)
	assert.Equal(t, "test-issuer", claims.Issuer)
	assert.Equal(t, issued.ID, claims.ID)
}

func TestIssue_RequiresSubject(t *testing.T) {
	svc := newTestTokenService(t, time.Now())
	_, _, err := svc.Issue("", "ann", nil)
	assert.ErrorIs(t, err, ErrMissingSubject)
}

func TestValidate_TimeClaims(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	token, _, err := newTestTokenService(t, issuedAt).Issue("42", "", nil)
	require.NoError(t, err)

	tests := []struct {
		name string
		at   time.Time
		err  error
	}{
		{"within lifetime", issuedAt.Add(10 * time.Minute), nil},
		{"expired", issuedAt.Add(2 * time.Hour), ErrExpiredToken},
		{"not yet valid", issuedAt.Add(-time.Minute), ErrTokenNotYetValid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestTokenService(t, tt.at).Validate(token)
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestValidate_Rejects(t *testing.T) {
	now := time.Now()
	svc := newTestTokenService(t, now)

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.Validate("invalid-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewTokenService(config.AuthConfig{JWTSecret: "another-secret", Issuer: "test-issuer"})
		require.NoError(t, err)
		token, _, err := other.Issue("42", "", nil)
		require.NoError(t, err)

		_, err = svc.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other, err := NewTokenService(config.AuthConfig{JWTSecret: testSecret, Issuer: "someone-else"})
		require.NoError(t, err)
		token, _, err := other.Issue("42", "", nil)
		require.NoError(t, err)

		_, err = svc.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unexpected algorithm", func(t *testing.T) {
		claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			Issuer:    "test-issuer",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = svc.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing subject", func(t *testing.T) {
		claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "test-issuer",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = svc.Validate(token)
		assert.ErrorIs(t, err, ErrMissingSubject)
	})
}

func TestClaims_ExpiresIn(t *testing.T) {
	assert.Zero(t, (&Claims{}).ExpiresIn())

	past := &Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))}}
	assert.Zero(t, past.ExpiresIn())

	future := &Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}}
	assert.Greater(t, future.ExpiresIn(), 59*time.Minute)
}

func TestMemoryRevoker(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	r := NewMemoryRevoker()
	r.now = func() time.Time { return now }

	require.NoError(t, r.Revoke(ctx, "jti-1", time.Hour))
	require.NoError(t, r.Revoke(ctx, "jti-ignored", 0))

	revoked, err := r.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = r.IsRevoked(ctx, "jti-ignored")
	require.NoError(t, err)
	assert.False(t, revoked)

	now = now.Add(2 * time.Hour)
	revoked, err = r.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
	assert.Empty(t, r.revoked)
}
