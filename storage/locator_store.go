package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"training-launcher/core/models"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// LocatorStore persists named string values for later workflows
type LocatorStore interface {
	PutLocator(ctx context.Context, loc models.Locator) error
	GetLocator(ctx context.Context, name string) (*models.Locator, error)
}

type locatorEntry struct {
	Value     string    `yaml:"value"`
	JobName   string    `yaml:"job_name,omitempty"`
	UpdatedAt time.Time `yaml:"updated_at"`
}

// FileLocatorStore keeps locators in a single YAML document
type FileLocatorStore struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
}

var _ LocatorStore = (*FileLocatorStore)(nil)

func NewFileLocatorStore(fs afero.Fs, path string) *FileLocatorStore {
	return &FileLocatorStore{fs: fs, path: path}
}

func (s *FileLocatorStore) PutLocator(_ context.Context, loc models.Locator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	if loc.UpdatedAt.IsZero() {
		loc.UpdatedAt = time.Now().UTC()
	}
	entries[loc.Name] = locatorEntry{Value: loc.Value, JobName: loc.JobName, UpdatedAt: loc.UpdatedAt}

	data, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode locator store: %w", err)
	}
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", s.path, err)
	}

	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	return nil
}

func (s *FileLocatorStore) GetLocator(_ context.Context, name string) (*models.Locator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return nil, err
	}
	entry, ok := entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrLocatorNotFound, name)
	}
	return &models.Locator{Name: name, Value: entry.Value, JobName: entry.JobName, UpdatedAt: entry.UpdatedAt}, nil
}

func (s *FileLocatorStore) load() (map[string]locatorEntry, error) {
	entries := map[string]locatorEntry{}

	exists, err := afero.Exists(s.fs, s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", s.path, err)
	}
	if !exists {
		return entries, nil
	}

	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
	}
	if entries == nil {
		entries = map[string]locatorEntry{}
	}
	return entries, nil
}
