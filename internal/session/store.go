package session

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/ansel1/merry/v2"
	"gopkg.in/yaml.v3"
)

// ErrNotFound means there is no saved generation for the project.
var ErrNotFound = merry.Sentinel("no previous generation found")

// Store keeps the last generation per project. Entries live until Clear.
type Store interface {
	Save(projectID string, p Payload) error
	Load(projectID string) (Payload, error)
	Clear(projectID string) error
}

type MemoryStore struct {
	mu       sync.RWMutex
	payloads map[string]Payload
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{payloads: make(map[string]Payload)}
}

func (s *MemoryStore) Save(projectID string, p Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads[projectID] = p
	return nil
}

func (s *MemoryStore) Load(projectID string) (Payload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payloads[projectID]
	if !ok {
		return Payload{}, merry.Wrap(ErrNotFound, merry.WithMessagef("no previous generation found for %s", projectID))
	}
	return p, nil
}

func (s *MemoryStore) Clear(projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.payloads, projectID)
	return nil
}

// FileStore keeps one YAML file per project in a directory.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(projectID string) (string, error) {
	if projectID == "" {
		return "", fmt.Errorf("empty project id")
	}
	return filepath.Join(s.dir, url.PathEscape(projectID)+".yaml"), nil
}

func (s *FileStore) Save(projectID string, p Payload) error {
	path, err := s.path(projectID)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	// write then rename so a crash never leaves half a payload behind
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *FileStore) Load(projectID string) (Payload, error) {
	path, err := s.path(projectID)
	if err != nil {
		return Payload{}, err
	}

	s.mu.Lock()
	data, err := os.ReadFile(path)
	s.mu.Unlock()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Payload{}, merry.Wrap(ErrNotFound, merry.WithMessagef("no previous generation found for %s", projectID))
		}
		return Payload{}, err
	}

	var p Payload
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return p, nil
}

func (s *FileStore) Clear(projectID string) error {
	path, err := s.path(projectID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
