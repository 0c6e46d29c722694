// Package cache keeps device-reported collections (channels, apps) on disk so
// reads do not need a round trip to the TV. A collection only changes through
// a wholesale ReplaceAll.
package cache

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
)

// Collection names used by the remote.
const (
	Channels = "channels"
	Apps     = "apps"
)

// Backend selects the on-disk representation.
type Backend string

const (
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
)

// ErrCacheWriteFailed is returned by ReplaceAll when the new contents could not
// be persisted. The previous contents are still in place.
var ErrCacheWriteFailed = errors.New("cache write failed")

// Record is one opaque entry exactly as the device reported it.
type Record map[string]any

// Collection is a named, ordered list of records.
type Collection interface {
	Name() string

	// All returns the current contents in stored order. A collection that was
	// never written is empty, not an error.
	All(ctx context.Context) ([]Record, error)

	// ReplaceAll atomically swaps the contents for recs.
	ReplaceAll(ctx context.Context, recs []Record) error
}

// Store hands out collections of one backend.
type Store interface {
	Collection(name string) Collection
	Close() error
}

// ParseBackend validates a backend name from config.
func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case BackendFile, "":
		return BackendFile, nil
	case BackendSQLite:
		return BackendSQLite, nil
	default:
		return "", fmt.Errorf("unknown cache backend %q (want %q or %q)", s, BackendFile, BackendSQLite)
	}
}

// Open opens the store for backend rooted at home.
func Open(backend Backend, home string) (Store, error) {
	switch backend {
	case BackendFile, "":
		return NewFileStore(home), nil
	case BackendSQLite:
		return OpenSQLite(filepath.Join(home, SQLiteFile))
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}

func writeFailed(name string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrCacheWriteFailed, name, err)
}
