// ABOUTME: Durable checkpoint of in-flight login state as a TOML file
// ABOUTME: Lets a recreated controller finish a flow started before teardown

package login

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Checkpoint is the in-flight login state that must outlive the
// controller: the submitted domain and the app credentials registered
// for it. All fields empty means no flow is in progress.
type Checkpoint struct {
	Domain       string `toml:"domain"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// CheckpointStore persists and restores login checkpoints.
type CheckpointStore interface {
	// Save writes the checkpoint, replacing any previous one.
	Save(cp Checkpoint) error

	// Read returns the saved checkpoint. A missing checkpoint is not an
	// error; it reads back as the zero value (empty strings).
	Read() (Checkpoint, error)
}

// FileCheckpointStore stores the checkpoint as a small TOML file with
// owner-only permissions (it holds a client secret).
type FileCheckpointStore struct {
	path string
}

// NewFileCheckpointStore creates a store writing to the given path.
func NewFileCheckpointStore(path string) *FileCheckpointStore {
	return &FileCheckpointStore{path: path}
}

// Save writes the checkpoint file, creating parent directories as needed.
func (s *FileCheckpointStore) Save(cp Checkpoint) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("creating checkpoint directory: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating checkpoint file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cp); err != nil {
		return fmt.Errorf("encoding checkpoint: %w", err)
	}
	return nil
}

// Read loads the checkpoint file. Absence reads as the zero checkpoint.
func (s *FileCheckpointStore) Read() (Checkpoint, error) {
	var cp Checkpoint
	if _, err := toml.DecodeFile(s.path, &cp); err != nil {
		if os.IsNotExist(err) {
			return Checkpoint{}, nil
		}
		return Checkpoint{}, fmt.Errorf("reading checkpoint: %w", err)
	}
	return cp, nil
}

// Clear removes the stored checkpoint. Called once a flow completes and
// the credentials are no longer valid.
func (s *FileCheckpointStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing checkpoint: %w", err)
	}
	return nil
}

var _ CheckpointStore = (*FileCheckpointStore)(nil)
