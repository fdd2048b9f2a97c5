// ABOUTME: Tests for credential lookup and token inspection
// ABOUTME: Covers source precedence, file fallback and JWT expiry reporting

package credentials

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/mission-control/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStore_EnvOverridesSecrets(t *testing.T) {
	t.Setenv("TEST_MC_TOKEN", "from-env")
	secrets := store.NewMockStore()
	require.NoError(t, secrets.SetSecret(context.Background(), TokenKey, "from-secrets"))

	s := New(Options{EnvVar: "TEST_MC_TOKEN", Secrets: secrets, Logger: testLogger()})

	got, err := s.Load(context.Background(), TokenKey)
	require.NoError(t, err)
	assert.Equal(t, "from-env", got)
}

func TestStore_SecretsThenFile(t *testing.T) {
	dir := t.TempDir()
	tokenFile := filepath.Join(dir, "token")
	require.NoError(t, os.WriteFile(tokenFile, []byte("  from-file\n"), 0600))

	secrets := store.NewMockStore()
	s := New(Options{FilePath: tokenFile, Secrets: secrets, Logger: testLogger()})

	got, err := s.Load(context.Background(), TokenKey)
	require.NoError(t, err)
	assert.Equal(t, "from-file", got)

	require.NoError(t, s.Save(context.Background(), TokenKey, "from-secrets"))
	got, err = s.Load(context.Background(), TokenKey)
	require.NoError(t, err)
	assert.Equal(t, "from-secrets", got)
}

func TestStore_MissingEverywhere(t *testing.T) {
	s := New(Options{
		EnvVar:   "TEST_MC_TOKEN_UNSET_XYZ",
		FilePath: filepath.Join(t.TempDir(), "absent"),
		Logger:   testLogger(),
	})

	got, err := s.Load(context.Background(), TokenKey)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_SaveToFile(t *testing.T) {
	tokenFile := filepath.Join(t.TempDir(), "nested", "token")
	s := New(Options{FilePath: tokenFile, Logger: testLogger()})

	require.NoError(t, s.Save(context.Background(), TokenKey, " secret "))

	info, err := os.Stat(tokenFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	got, err := s.Load(context.Background(), TokenKey)
	require.NoError(t, err)
	assert.Equal(t, "secret", got)
}

func TestStore_SaveEmptyClearsSecret(t *testing.T) {
	secrets := store.NewMockStore()
	s := New(Options{Secrets: secrets, Logger: testLogger()})
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, TokenKey, "tok"))
	require.NoError(t, s.Save(ctx, TokenKey, ""))
	require.NoError(t, s.Save(ctx, TokenKey, ""))

	got, err := s.Load(ctx, TokenKey)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_SaveWithoutBackend(t *testing.T) {
	s := New(Options{Logger: testLogger()})
	assert.Error(t, s.Save(context.Background(), TokenKey, "tok"))
}

func TestInspect(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	sign := func(claims jwt.MapClaims) string {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("irrelevant-secret"))
		require.NoError(t, err)
		return tok
	}

	valid := Inspect(sign(jwt.MapClaims{"sub": "operator", "exp": now.Add(time.Hour).Unix()}), now)
	assert.True(t, valid.IsJWT)
	assert.Equal(t, "operator", valid.Subject)
	require.NotNil(t, valid.ExpiresAt)
	assert.False(t, valid.Expired)

	expired := Inspect(sign(jwt.MapClaims{"sub": "operator", "exp": now.Add(-time.Minute).Unix()}), now)
	assert.True(t, expired.IsJWT)
	assert.True(t, expired.Expired)

	noExp := Inspect(sign(jwt.MapClaims{"sub": "x"}), now)
	assert.True(t, noExp.IsJWT)
	assert.Nil(t, noExp.ExpiresAt)

	opaque := Inspect("sk-plain-opaque-token", now)
	assert.False(t, opaque.IsJWT)
}
