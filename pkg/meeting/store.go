package meeting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotFound is returned when a meeting id has no stored record.
var ErrNotFound = errors.New("meeting: not found")

// Store persists one durable record per meeting, keyed by id.
type Store interface {
	// Save writes the full record, replacing any existing one. Writes are
	// all-or-nothing; a failed save never leaves a partial record.
	Save(ctx context.Context, m *Meeting) error

	// Load returns the record for id, or ErrNotFound.
	Load(ctx context.Context, id string) (*Meeting, error)

	// LoadAll returns all records sorted by start date descending.
	// Records that fail to decode are skipped, not fatal.
	LoadAll(ctx context.Context) ([]*Meeting, error)

	// Delete removes the record for id. Removing a nonexistent id is not
	// an error.
	Delete(ctx context.Context, id string) error
}

// FileStore keeps one <id>.json file per meeting in a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("meeting: create store dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *FileStore) Save(_ context.Context, m *Meeting) error {
	if m.ID == "" {
		return errors.New("meeting: save with empty id")
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("meeting: encode %s: %w", m.ID, err)
	}
	tmp := s.path(m.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("meeting: write %s: %w", m.ID, err)
	}
	if err := os.Rename(tmp, s.path(m.ID)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("meeting: commit %s: %w", m.ID, err)
	}
	return nil
}

func (s *FileStore) Load(_ context.Context, id string) (*Meeting, error) {
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("meeting: read %s: %w", id, err)
	}
	var m Meeting
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("meeting: decode %s: %w", id, err)
	}
	return &m, nil
}

func (s *FileStore) LoadAll(_ context.Context) ([]*Meeting, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("meeting: read store dir: %w", err)
	}
	var out []*Meeting
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			continue
		}
		var m Meeting
		// A record that fails to decode is skipped; the rest still load.
		if err := json.Unmarshal(data, &m); err != nil || m.ID == "" {
			continue
		}
		out = append(out, &m)
	}
	sortByDateDesc(out)
	return out, nil
}

func (s *FileStore) Delete(_ context.Context, id string) error {
	err := os.Remove(s.path(id))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("meeting: delete %s: %w", id, err)
	}
	return nil
}

func sortByDateDesc(ms []*Meeting) {
	sort.Slice(ms, func(i, j int) bool {
		return ms[i].StartedAt.After(ms[j].StartedAt)
	})
}
