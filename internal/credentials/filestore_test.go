package credentials

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileStore_GeneratesKeyOnFirstRun(t *testing.T) {
	dir := t.TempDir()

	_, err := NewFileStore(dir)
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dir, keyFileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestNewFileStore_ReusesExistingKeyAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	first, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.StoreSecret(KeySlackWebhook, "https://hooks.slack.com/services/T/B/X"))

	second, err := NewFileStore(dir)
	require.NoError(t, err)
	value, ok, err := second.Retrieve(KeySlackWebhook)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://hooks.slack.com/services/T/B/X", value)
}

func TestNewFileStore_RejectsCorruptKeyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(dir, 0700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, keyFileName), []byte("too-short"), 0600))

	_, err := NewFileStore(dir)
	assert.Error(t, err)
}

func TestStoreSecret_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.StoreSecret(KeyTeamsWebhook, "secret-value"))
	value, ok, err := store.Retrieve(KeyTeamsWebhook)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "secret-value", value)

	require.NoError(t, store.Delete(KeyTeamsWebhook))
	_, ok, err = store.Retrieve(KeyTeamsWebhook)
	require.NoError(t, err)
	assert.False(t, ok)
}
