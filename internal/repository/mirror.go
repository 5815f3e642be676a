package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/lshigami/Quokkas/config"
)

// Mirror is the local fallback copy of the remote document: the last
// serialized library plus the version token it was observed at. Read
// once at startup, rewritten after every successful remote exchange.
type Mirror interface {
	Load() (library []byte, sha string, ok bool)
	Store(library []byte, sha string) error
	Clear() error
}

type mirrorData struct {
	Library json.RawMessage `json:"library"`
	SHA     string          `json:"sha"`
}

type fileMirror struct {
	mu   sync.RWMutex
	path string
}

func NewMirror(cfg *config.Config) (Mirror, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &fileMirror{path: filepath.Join(cfg.DataDir, "mirror.json")}, nil
}

func (m *fileMirror) Load() ([]byte, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	raw, err := os.ReadFile(m.path)
	if err != nil {
		return nil, "", false
	}

	var data mirrorData
	if err := json.Unmarshal(raw, &data); err != nil || len(data.Library) == 0 {
		return nil, "", false
	}
	return data.Library, data.SHA, true
}

func (m *fileMirror) Store(library []byte, sha string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, err := json.Marshal(mirrorData{Library: library, SHA: sha})
	if err != nil {
		return fmt.Errorf("encode mirror: %w", err)
	}
	if err := os.WriteFile(m.path, raw, 0o644); err != nil {
		return fmt.Errorf("write mirror: %w", err)
	}
	return nil
}

func (m *fileMirror) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.Remove(m.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear mirror: %w", err)
	}
	return nil
}
