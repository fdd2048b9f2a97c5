// ABOUTME: Gateway token lookup from environment, secrets table or token file
// ABOUTME: Also inspects JWT tokens without verifying them, for diagnostics

package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/2389/mission-control/internal/store"
)

// TokenKey is the credential key holding the gateway bearer token.
const TokenKey = "missioncontrol.gateway.token"

// Options configures a Store.
type Options struct {
	// EnvVar, when set and non-empty in the environment, overrides every other source.
	EnvVar string

	// FilePath is a plain token file used when no secrets store holds a value.
	FilePath string

	// Secrets is the durable backing store. Saves go here when set.
	Secrets store.SecretsStore

	Logger *slog.Logger
}

// Store resolves credentials from several sources.
type Store struct {
	envVar   string
	filePath string
	secrets  store.SecretsStore
	logger   *slog.Logger
}

// New creates a credential store.
func New(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		envVar:   opts.EnvVar,
		filePath: opts.FilePath,
		secrets:  opts.Secrets,
		logger:   logger.With("component", "credentials"),
	}
}

// Load returns the value for key, or "" if no source has one.
// The environment variable and token file only answer for TokenKey.
func (s *Store) Load(ctx context.Context, key string) (string, error) {
	if key == TokenKey && s.envVar != "" {
		if v := strings.TrimSpace(os.Getenv(s.envVar)); v != "" {
			return v, nil
		}
	}

	if s.secrets != nil {
		v, err := s.secrets.GetSecret(ctx, key)
		switch {
		case err == nil:
			return v, nil
		case !errors.Is(err, store.ErrNotFound):
			return "", fmt.Errorf("reading secret: %w", err)
		}
	}

	if key == TokenKey && s.filePath != "" {
		data, err := os.ReadFile(s.filePath)
		if err == nil {
			return strings.TrimSpace(string(data)), nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("reading token file: %w", err)
		}
	}

	return "", nil
}

// Save stores value under key, in the secrets store when configured and
// otherwise in the token file.
func (s *Store) Save(ctx context.Context, key, value string) error {
	value = strings.TrimSpace(value)

	if s.secrets != nil {
		if value == "" {
			err := s.secrets.DeleteSecret(ctx, key)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("clearing secret: %w", err)
			}
			return nil
		}
		if err := s.secrets.SetSecret(ctx, key, value); err != nil {
			return fmt.Errorf("saving secret: %w", err)
		}
		s.logger.Debug("saved credential", "key", key, "backend", "secrets")
		return nil
	}

	if key != TokenKey || s.filePath == "" {
		return fmt.Errorf("no credential backend for %s", key)
	}

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}
	if err := os.WriteFile(s.filePath, []byte(value+"\n"), 0600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	s.logger.Debug("saved credential", "key", key, "backend", "file")
	return nil
}

// TokenInfo describes a bearer token without trusting it.
type TokenInfo struct {
	IsJWT     bool
	Subject   string
	ExpiresAt *time.Time
	Expired   bool
}

// Inspect reads the claims of a JWT token without verifying its signature.
// Opaque tokens report IsJWT=false.
func Inspect(token string, now time.Time) TokenInfo {
	parsed, _, err := jwt.NewParser().ParseUnverified(strings.TrimSpace(token), jwt.MapClaims{})
	if err != nil {
		return TokenInfo{}
	}

	info := TokenInfo{IsJWT: true}
	if sub, err := parsed.Claims.GetSubject(); err == nil {
		info.Subject = sub
	}
	if exp, err := parsed.Claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		info.ExpiresAt = &t
		info.Expired = !now.Before(t)
	}
	return info
}
