package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/termdex/blobstore"
)

const (
	ManifestPrefix  = "MANIFEST-"
	CurrentFileName = "CURRENT"
	// CurrentVersion is the version of the manifest format.
	CurrentVersion = 1
)

// Manifest describes one backup.
type Manifest struct {
	Version   int        `json:"version"`
	ID        uint64     `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	Postings  int64      `json:"postings"`
	Terms     int64      `json:"terms"`
	Documents int64      `json:"documents"`
	DumpCodec string     `json:"dump_codec"`
	Files     []FileInfo `json:"files"`
}

// FileInfo describes one file of a backup.
type FileInfo struct {
	Name   string `json:"name"`
	Size   int64  `json:"size"`
	CRC32C uint32 `json:"crc32c"`
}

// Dir returns the blob directory of the backup files.
func (m *Manifest) Dir() string { return fmt.Sprintf("%06d", m.ID) }

// Path returns the blob name of a backup file.
func (m *Manifest) Path(name string) string { return path.Join(m.Dir(), name) }

func fileName(id uint64) string { return fmt.Sprintf("%s%06d.json", ManifestPrefix, id) }

// Store manages manifests on a blob store.
type Store struct {
	store blobstore.BlobStore
	mu    sync.Mutex
}

// NewStore creates a new manifest store.
func NewStore(store blobstore.BlobStore) *Store {
	return &Store{store: store}
}

func (s *Store) read(ctx context.Context, name string) ([]byte, error) {
	b, err := s.store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	r, err := blobstore.Stream(ctx, b)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (s *Store) current(ctx context.Context) (string, error) {
	content, err := s.read(ctx, CurrentFileName)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return strings.TrimSpace(string(content)), nil
}

func (s *Store) decode(ctx context.Context, name string) (*Manifest, error) {
	content, err := s.read(ctx, name)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to open manifest %s: %w", name, err)
	}
	m := &Manifest{}
	if err := json.Unmarshal(content, m); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", name, err)
	}
	if m.Version != CurrentVersion {
		return nil, fmt.Errorf("%w: %d", ErrIncompatibleVersion, m.Version)
	}
	return m, nil
}

// Load loads the current manifest.
func (s *Store) Load(ctx context.Context) (*Manifest, error) {
	return s.LoadVersion(ctx, 0)
}

// LoadVersion loads a specific backup ID. 0 means latest.
func (s *Store) LoadVersion(ctx context.Context, id uint64) (*Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := fileName(id)
	if id == 0 {
		cur, err := s.current(ctx)
		if err != nil {
			return nil, err
		}
		name = cur
	}
	return s.decode(ctx, name)
}

// NextID returns the ID the next saved backup should use.
func (s *Store) NextID(ctx context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.store.List(ctx, ManifestPrefix)
	if err != nil {
		return 0, err
	}
	var maxID uint64
	for _, n := range names {
		var id uint64
		if _, err := fmt.Sscanf(n, ManifestPrefix+"%06d.json", &id); err == nil {
			maxID = max(maxID, id)
		}
	}
	return maxID + 1, nil
}

// ListVersions returns all readable manifests in ID order. Unreadable
// manifests are skipped.
func (s *Store) ListVersions(ctx context.Context) ([]*Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.store.List(ctx, ManifestPrefix)
	if err != nil {
		return nil, err
	}
	var out []*Manifest
	for _, n := range names {
		if path.Ext(n) != ".json" {
			continue
		}
		m, err := s.decode(ctx, n)
		if err != nil {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// Save writes m and makes it current. m.ID must be set.
func (s *Store) Save(ctx context.Context, m *Manifest) error {
	if m.ID == 0 {
		return errors.New("manifest: save without ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	m.Version = CurrentVersion
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}

	name := fileName(m.ID)
	if err := s.store.Put(ctx, name, data); err != nil {
		return err
	}
	return s.store.Put(ctx, CurrentFileName, []byte(name))
}

// DeleteVersion deletes a manifest and its files. The current manifest
// cannot be deleted.
func (s *Store) DeleteVersion(ctx context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := fileName(id)
	if cur, err := s.current(ctx); err == nil && cur == name {
		return fmt.Errorf("manifest: %s is current", name)
	}

	m := &Manifest{ID: id}
	files, err := s.store.List(ctx, m.Dir()+"/")
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := s.store.Delete(ctx, f); err != nil {
			return err
		}
	}
	return s.store.Delete(ctx, name)
}
