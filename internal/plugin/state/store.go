// Package state persists which plugins are enabled across restarts,
// plus namespaced key/value data plugins store through the host.
package state

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Store persists the plugin enabled-state record: a flat mapping from
// plugin name to enabled flag.
type Store interface {
	// Load reads the enabled-state record. A missing record yields an
	// empty map, not an error.
	Load(ctx context.Context) (map[string]bool, error)

	// Save replaces the enabled-state record.
	Save(ctx context.Context, states map[string]bool) error

	// Close releases store resources.
	Close() error
}

// FileStore persists enabled state as a JSON file, rewritten atomically
// on every save via a temp file and rename.
type FileStore struct {
	path string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a file-backed store. The file and its parent
// directory are created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the state file.
func (s *FileStore) Load(_ context.Context) (map[string]bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]bool{}, nil
		}
		return nil, oops.In("state").Code("STATE_LOAD_FAILED").With("path", s.path).Wrap(err)
	}

	var states map[string]bool
	if err := json.Unmarshal(data, &states); err != nil {
		return nil, oops.In("state").Code("STATE_LOAD_FAILED").With("path", s.path).Hint("state file is not a JSON name-to-bool mapping").Wrap(err)
	}
	if states == nil {
		states = map[string]bool{}
	}
	return states, nil
}

// Save writes the state file atomically. Transient write failures are
// retried a few times with fibonacci backoff before giving up.
func (s *FileStore) Save(ctx context.Context, states map[string]bool) error {
	data, err := json.MarshalIndent(states, "", "  ")
	if err != nil {
		return oops.In("state").Code("STATE_SAVE_FAILED").With("path", s.path).Wrap(err)
	}

	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(50*time.Millisecond))
	err = retry.Do(ctx, backoff, func(context.Context) error {
		if err := s.writeAtomic(data); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return oops.In("state").Code("STATE_SAVE_FAILED").With("path", s.path).Wrap(err)
	}
	return nil
}

// writeAtomic writes data to a temp file in the target directory and
// renames it over the state file.
func (s *FileStore) writeAtomic(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".plugin_state-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	renamed := false
	defer func() {
		if !renamed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return err
	}
	renamed = true
	return nil
}

// Close is a no-op for file-backed stores.
func (s *FileStore) Close() error { return nil }

// Path returns the state file path.
func (s *FileStore) Path() string { return s.path }
