package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/ytakahashi/zikr-companion/internal/models"
	"github.com/ytakahashi/zikr-companion/internal/tracker"
)

// FileStore keeps each snapshot in its own file under a directory,
// encoded as JSON or YAML.
type FileStore struct {
	dir    string
	format string
	mu     sync.Mutex
}

func NewFileStore(dir, format string) (*FileStore, error) {
	switch format {
	case "", "json":
		format = "json"
	case "yaml", "yml":
		format = "yaml"
	default:
		return nil, fmt.Errorf("unsupported file format %q", format)
	}
	return &FileStore{dir: dir, format: format}, nil
}

// Path returns the file a key is stored in. Keys are base64url encoded so
// distinct keys never share a file and cannot escape the directory.
func (s *FileStore) Path(key string) string {
	return filepath.Join(s.dir, base64.RawURLEncoding.EncodeToString([]byte(key))+"."+s.format)
}

func (s *FileStore) Load(_ context.Context, key string) (*models.TrackerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.Path(key))
	if os.IsNotExist(err) {
		return nil, tracker.ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var state models.TrackerState
	if s.format == "yaml" {
		err = yaml.Unmarshal(data, &state)
	} else {
		err = json.Unmarshal(data, &state)
	}
	if err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}
	return &state, nil
}

func (s *FileStore) Save(_ context.Context, key string, state *models.TrackerState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		data []byte
		err  error
	)
	if s.format == "yaml" {
		data, err = yaml.Marshal(state)
	} else {
		data, err = json.MarshalIndent(state, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	path := s.Path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
