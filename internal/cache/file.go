package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"

	"github.com/dstrants/tvremote/internal/fsutil"
)

// defaultTable is the top-level key of the document layout. Files written by
// older installs use the same shape, so they load unchanged.
const defaultTable = "_default"

// pathLocks serializes writers of the same file across every handle in the
// process.
var pathLocks sync.Map // abs path -> *sync.Mutex

func lockFor(path string) *sync.Mutex {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	mu, _ := pathLocks.LoadOrStore(path, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// FileStore keeps each collection in <dir>/<name>.json.
type FileStore struct {
	dir string
}

// NewFileStore returns a file store rooted at dir. Nothing touches the disk
// until the first ReplaceAll.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Collection returns the handle for name.
func (s *FileStore) Collection(name string) Collection {
	return NewFileCollection(name, filepath.Join(s.dir, name+".json"))
}

// Close is a no-op; file handles are not held open.
func (s *FileStore) Close() error { return nil }

// FileCollection is a collection stored as one JSON document:
//
//	{"_default": {"1": {...}, "2": {...}}}
//
// Keys are 1-based positions.
type FileCollection struct {
	name string
	path string
	mu   *sync.Mutex

	// writeFile is swapped in tests to inject write failures.
	writeFile func(target string, data []byte, perm os.FileMode) error
}

// NewFileCollection returns a handle on the document at path.
func NewFileCollection(name, path string) *FileCollection {
	return &FileCollection{
		name:      name,
		path:      path,
		mu:        lockFor(path),
		writeFile: fsutil.WriteFileAtomic,
	}
}

func (c *FileCollection) Name() string { return c.name }

// Path returns the document location.
func (c *FileCollection) Path() string { return c.path }

// All reads the document. A missing or empty file is an empty collection.
func (c *FileCollection) All(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("read %s cache: %w", c.name, err)
	}
	if len(data) == 0 {
		return []Record{}, nil
	}

	var doc map[string]map[string]Record
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s cache: %w", c.name, err)
	}

	table := doc[defaultTable]
	type entry struct {
		pos int
		rec Record
	}
	entries := make([]entry, 0, len(table))
	for k, rec := range table {
		pos, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("decode %s cache: bad document id %q", c.name, k)
		}
		if rec == nil {
			rec = Record{}
		}
		entries = append(entries, entry{pos: pos, rec: rec})
	}
	slices.SortFunc(entries, func(a, b entry) int { return a.pos - b.pos })

	out := make([]Record, len(entries))
	for i, e := range entries {
		out[i] = e.rec
	}
	return out, nil
}

// ReplaceAll encodes recs fully in memory and renames the new document over
// the old one, so a failure at any step leaves the prior contents readable.
func (c *FileCollection) ReplaceAll(ctx context.Context, recs []Record) error {
	if err := ctx.Err(); err != nil {
		return writeFailed(c.name, err)
	}

	table := make(map[string]Record, len(recs))
	for i, rec := range recs {
		if rec == nil {
			rec = Record{}
		}
		table[strconv.Itoa(i+1)] = rec
	}
	data, err := json.Marshal(map[string]map[string]Record{defaultTable: table})
	if err != nil {
		return writeFailed(c.name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return writeFailed(c.name, err)
	}
	if err := c.writeFile(c.path, data, 0600); err != nil {
		return writeFailed(c.name, err)
	}
	return nil
}
