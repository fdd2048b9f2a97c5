// ABOUTME: Tests for the secrets table
// ABOUTME: Covers set, overwrite, get, delete and missing keys

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecrets_SetGetOverwrite(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.SetSecret(ctx, "missioncontrol.gateway.token", "first"))
	require.NoError(t, store.SetSecret(ctx, "missioncontrol.gateway.token", "second"))

	got, err := store.GetSecret(ctx, "missioncontrol.gateway.token")
	require.NoError(t, err)
	assert.Equal(t, "second", got)
}

func TestSecrets_Missing(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()
	ctx := context.Background()

	_, err := store.GetSecret(ctx, "nope")
	assert.True(t, errors.Is(err, ErrNotFound))

	err = store.DeleteSecret(ctx, "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSecrets_Delete(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.SetSecret(ctx, "k", "v"))
	require.NoError(t, store.DeleteSecret(ctx, "k"))

	_, err := store.GetSecret(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}
