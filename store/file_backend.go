package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileBackend persists the credential as a single plain-text file, one file
// per storage key. The file is owner-readable only.
type FileBackend struct {
	path string
}

// NewFileBackend stores the credential at dir/<storageKey>. An empty dir
// defaults to an application subdirectory of the user config directory; an
// empty storage key falls back to the default key.
func NewFileBackend(dir string, storageKey string) (*FileBackend, error) {
	key := sanitizeStorageKey(storageKey)
	if key == "" {
		return nil, fmt.Errorf("store: storage key %q is not usable as a file name", storageKey)
	}
	dir = strings.TrimSpace(dir)
	if dir == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("store: resolve config directory: %w", err)
		}
		dir = filepath.Join(configDir, "storefront")
	}
	return &FileBackend{path: filepath.Join(dir, key)}, nil
}

func (b *FileBackend) Path() string {
	if b == nil {
		return ""
	}
	return b.path
}

func (b *FileBackend) Load(_ context.Context) (string, bool, error) {
	if b == nil || b.path == "" {
		return "", false, fmt.Errorf("store: file backend is not configured")
	}
	raw, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("store: read credential file: %w", err)
	}
	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", false, nil
	}
	return token, true, nil
}

func (b *FileBackend) Save(_ context.Context, token string) error {
	if b == nil || b.path == "" {
		return fmt.Errorf("store: file backend is not configured")
	}
	if err := os.MkdirAll(filepath.Dir(b.path), 0o700); err != nil {
		return fmt.Errorf("store: create credential directory: %w", err)
	}
	if err := os.WriteFile(b.path, []byte(token), 0o600); err != nil {
		return fmt.Errorf("store: write credential file: %w", err)
	}
	return nil
}

func (b *FileBackend) Delete(_ context.Context) error {
	if b == nil || b.path == "" {
		return fmt.Errorf("store: file backend is not configured")
	}
	if err := os.Remove(b.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("store: remove credential file: %w", err)
	}
	return nil
}

// sanitizeStorageKey keeps the key safe as a bare file name.
func sanitizeStorageKey(storageKey string) string {
	key := strings.TrimSpace(storageKey)
	if key == "" {
		return ""
	}
	key = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, key)
	if strings.Trim(key, "._") == "" {
		return ""
	}
	return key
}

var _ Backend = (*FileBackend)(nil)
