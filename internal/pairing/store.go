package pairing

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/dstrants/tvremote/internal/fsutil"
)

// RecordFile is the name of the pairing record inside the store directory.
const RecordFile = "remote.yaml"

var (
	// ErrConfigMissing indicates no pairing record has ever been saved.
	ErrConfigMissing = errors.New("pairing record missing")

	// ErrConfigInvalid indicates the persisted record exists but is malformed.
	ErrConfigInvalid = errors.New("pairing record invalid")
)

// Record is the pairing state persisted between runs: the TV address and the
// client key the TV issued during registration.
type Record struct {
	IP    netip.Addr
	Token string
}

// recordDoc is the on-disk YAML shape. Kept separate from Record so a
// hand-edited file with a bad address is reported as ErrConfigInvalid instead
// of a decode panic deep inside netip.
type recordDoc struct {
	IP    string `yaml:"ip"`
	Token string `yaml:"token"`
}

// Validate reports whether r can be used to open a session.
func (r Record) Validate() error {
	if !r.IP.IsValid() {
		return fmt.Errorf("%w: ip is missing", ErrConfigInvalid)
	}
	if !r.IP.Is4() {
		return fmt.Errorf("%w: ip %s is not an IPv4 address", ErrConfigInvalid, r.IP)
	}
	if r.Token == "" {
		return fmt.Errorf("%w: token is missing", ErrConfigInvalid)
	}
	return nil
}

// Store persists a single pairing Record as YAML under a directory.
// Reads always go to disk; nothing is cached in memory so a concurrent
// re-pairing is seen by the next Load.
type Store struct {
	mu  sync.Mutex
	dir string
}

// NewStore returns a store rooted at dir. The directory is created on first Save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the directory holding the record.
func (s *Store) Dir() string { return s.dir }

// Path returns the full path of the record file.
func (s *Store) Path() string { return filepath.Join(s.dir, RecordFile) }

// Load reads and validates the persisted record.
func (s *Store) Load() (Record, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, ErrConfigMissing
		}
		return Record{}, fmt.Errorf("read %s: %w", RecordFile, err)
	}

	var doc recordDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}

	rec := Record{Token: doc.Token}
	if doc.IP != "" {
		ip, err := netip.ParseAddr(doc.IP)
		if err != nil {
			return Record{}, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
		}
		rec.IP = ip
	}
	if err := rec.Validate(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Save replaces the persisted record. The file is written to a temp file and
// renamed into place, so readers see either the old or the new record.
func (s *Store) Save(rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(recordDoc{IP: rec.IP.String(), Token: rec.Token})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", RecordFile, err)
	}
	return fsutil.WriteFileAtomic(s.Path(), data, 0600)
}
