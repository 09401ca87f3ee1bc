// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EnvStudio Contributors

package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/boltdb/bolt"
	"github.com/samber/oops"
)

// Bucket names in the shared bolt database.
var (
	stateBucket = []byte("plugin_state")
	kvBucket    = []byte("plugin_kv")
)

// OpenBolt opens (creating if needed) the bolt database backing the
// bolt state store and the plugin key/value store. The open times out
// after one second if another process holds the file lock.
func OpenBolt(path string) (*bolt.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, oops.In("state").Code("STATE_OPEN_FAILED").With("path", path).Wrap(err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, oops.In("state").Code("STATE_OPEN_FAILED").With("path", path).Hint("is another envstudio process running?").Wrap(err)
	}
	return db, nil
}

// BoltStore persists enabled state in a bolt bucket. The store does
// not own the database; callers that OpenBolt also close it.
type BoltStore struct {
	db *bolt.DB
}

var _ Store = (*BoltStore)(nil)

// NewBoltStore creates a bolt-backed store on an open database.
func NewBoltStore(db *bolt.DB) *BoltStore {
	return &BoltStore{db: db}
}

// Load reads the enabled-state bucket.
func (s *BoltStore) Load(_ context.Context) (map[string]bool, error) {
	states := make(map[string]bool)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(stateBucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			enabled, err := strconv.ParseBool(string(v))
			if err != nil {
				return fmt.Errorf("corrupt enabled flag for %q: %w", string(k), err)
			}
			states[string(k)] = enabled
			return nil
		})
	})
	if err != nil {
		return nil, oops.In("state").Code("STATE_LOAD_FAILED").Wrap(err)
	}
	return states, nil
}

// Save replaces the enabled-state bucket in one transaction.
func (s *BoltStore) Save(_ context.Context, states map[string]bool) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(stateBucket); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		b, err := tx.CreateBucket(stateBucket)
		if err != nil {
			return err
		}
		for name, enabled := range states {
			if err := b.Put([]byte(name), strconv.AppendBool(nil, enabled)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return oops.In("state").Code("STATE_SAVE_FAILED").Wrap(err)
	}
	return nil
}

// Close is a no-op; the database is closed by whoever opened it.
func (s *BoltStore) Close() error { return nil }

// BoltKV is namespaced key/value storage for plugins, sharing the bolt
// database with BoltStore. Each plugin gets its own nested bucket so
// keys cannot collide across plugins.
type BoltKV struct {
	db *bolt.DB
}

// NewBoltKV creates the plugin key/value store on an open database.
func NewBoltKV(db *bolt.DB) *BoltKV {
	return &BoltKV{db: db}
}

// Get reads a key from a plugin's namespace. A missing namespace or
// key yields (nil, nil).
func (s *BoltKV) Get(_ context.Context, namespace, key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		root := tx.Bucket(kvBucket)
		if root == nil {
			return nil
		}
		ns := root.Bucket([]byte(namespace))
		if ns == nil {
			return nil
		}
		if v := ns.Get([]byte(key)); v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, oops.In("state").Code("KV_GET_FAILED").With("namespace", namespace).With("key", key).Wrap(err)
	}
	return out, nil
}

// Set writes a key in a plugin's namespace.
func (s *BoltKV) Set(_ context.Context, namespace, key string, value []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists(kvBucket)
		if err != nil {
			return err
		}
		ns, err := root.CreateBucketIfNotExists([]byte(namespace))
		if err != nil {
			return err
		}
		return ns.Put([]byte(key), value)
	})
	if err != nil {
		return oops.In("state").Code("KV_SET_FAILED").With("namespace", namespace).With("key", key).Wrap(err)
	}
	return nil
}

// Delete removes a key from a plugin's namespace. Deleting a missing
// key is a no-op.
func (s *BoltKV) Delete(_ context.Context, namespace, key string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket(kvBucket)
		if root == nil {
			return nil
		}
		ns := root.Bucket([]byte(namespace))
		if ns == nil {
			return nil
		}
		return ns.Delete([]byte(key))
	})
	if err != nil {
		return oops.In("state").Code("KV_DELETE_FAILED").With("namespace", namespace).With("key", key).Wrap(err)
	}
	return nil
}
