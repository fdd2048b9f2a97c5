// ABOUTME: Store interfaces for mission-control persistence
// ABOUTME: Whole-collection save/load keyed by logical name, plus a secrets table

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// Collection keys used by the orchestrator.
const (
	KeyProfile        = "missioncontrol.profile"
	KeySessions       = "missioncontrol.sessions"
	KeyEvents         = "missioncontrol.events"
	KeyJournal        = "missioncontrol.journal"
	KeyCronJobs       = "missioncontrol.cronjobs"
	KeyLatencySamples = "missioncontrol.latencySamples"
)

// Store persists whole collections. Each save replaces the stored collection
// atomically; the last write wins.
type Store interface {
	SaveCollection(ctx context.Context, key string, payload []byte) error
	// LoadCollection returns ErrNotFound if nothing was ever saved under key.
	LoadCollection(ctx context.Context, key string) ([]byte, error)
	Close() error
}

// SecretsStore keeps small secret values such as the gateway token.
type SecretsStore interface {
	SetSecret(ctx context.Context, key, value string) error
	// GetSecret returns ErrNotFound if key has no value.
	GetSecret(ctx context.Context, key string) (string, error)
	DeleteSecret(ctx context.Context, key string) error
}

// SaveJSON encodes v and saves it under key.
func SaveJSON(ctx context.Context, s Store, key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := s.SaveCollection(ctx, key, payload); err != nil {
		return fmt.Errorf("saving %s: %w", key, err)
	}
	return nil
}

// LoadJSON decodes the collection saved under key into v.
// It reports false, with a nil error, when nothing was saved.
func LoadJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	payload, err := s.LoadCollection(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("loading %s: %w", key, err)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}
