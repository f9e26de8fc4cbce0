package game

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/user/dopewars-engine/config"
)

// SnapshotStore persists encoded session snapshots by player key
type SnapshotStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// FileStore keeps one JSON file per player in a directory
type FileStore struct {
	dir       string
	stateLock sync.RWMutex
}

// NewFileStore creates a file store rooted at dir
func NewFileStore(dir string) (*FileStore, error) {
	// Create data directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (fs *FileStore) path(key string) string {
	return filepath.Join(fs.dir, storeKey(key)+".json")
}

// Put writes a snapshot to disk
func (fs *FileStore) Put(ctx context.Context, key string, data []byte) error {
	fs.stateLock.Lock()
	defer fs.stateLock.Unlock()

	// Write to a temp file, then rename over the old save
	tmp := fs.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, fs.path(key)); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// Get reads a snapshot from disk
func (fs *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	fs.stateLock.RLock()
	defer fs.stateLock.RUnlock()

	data, err := os.ReadFile(fs.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}
	return data, nil
}

// Delete removes a snapshot; deleting a missing snapshot is not an error
func (fs *FileStore) Delete(ctx context.Context, key string) error {
	fs.stateLock.Lock()
	defer fs.stateLock.Unlock()

	if err := os.Remove(fs.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// OpenStore builds the snapshot store selected by the storage backend. The
// returned close func releases the store's resources.
func OpenStore(cfg config.Config) (SnapshotStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Storage.Backend {
	case "", "file":
		store, err := NewFileStore(cfg.Storage.Dir)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil

	case "sqlite":
		store, err := NewSQLiteStore(cfg.Database.DSN)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil

	case "redis":
		store := NewRedisStore(NewRedisPool(cfg.Storage.RedisAddr), cfg.Storage.RedisPrefix)
		if err := store.Ping(context.Background()); err != nil {
			store.Close()
			return nil, nil, err
		}
		return store, store.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}
