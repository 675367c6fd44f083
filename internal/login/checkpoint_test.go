// ABOUTME: Tests for the file-backed login checkpoint store

package login

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCheckpointStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "login", "checkpoint.toml")
	cs := NewFileCheckpointStore(path)

	want := Checkpoint{
		Domain:       "example.social",
		ClientID:     "client-1",
		ClientSecret: "secret-1",
	}
	require.NoError(t, cs.Save(want))

	got, err := cs.Read()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFileCheckpointStore_MissingFileReadsAsZero(t *testing.T) {
	cs := NewFileCheckpointStore(filepath.Join(t.TempDir(), "absent.toml"))

	got, err := cs.Read()
	require.NoError(t, err)
	assert.Equal(t, Checkpoint{}, got)
}

func TestFileCheckpointStore_Clear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.toml")
	cs := NewFileCheckpointStore(path)

	require.NoError(t, cs.Save(Checkpoint{Domain: "example.social"}))
	require.NoError(t, cs.Clear())

	got, err := cs.Read()
	require.NoError(t, err)
	assert.Equal(t, Checkpoint{}, got)

	// Clearing twice is fine.
	require.NoError(t, cs.Clear())
}
