package store

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestFileBackend_SaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	backend, err := NewFileBackend(t.TempDir(), "storefront_access_token")
	if err != nil {
		t.Fatalf("new file backend: %v", err)
	}

	if _, present, loadErr := backend.Load(ctx); loadErr != nil || present {
		t.Fatalf("expected absent credential, got present=%v err=%v", present, loadErr)
	}

	if err := backend.Save(ctx, "tok_1"); err != nil {
		t.Fatalf("save: %v", err)
	}
	token, present, err := backend.Load(ctx)
	if err != nil || !present || token != "tok_1" {
		t.Fatalf("unexpected load: %q %v %v", token, present, err)
	}

	if err := backend.Delete(ctx); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, present, _ := backend.Load(ctx); present {
		t.Fatalf("expected credential gone after delete")
	}
	if err := backend.Delete(ctx); err != nil {
		t.Fatalf("delete must be idempotent: %v", err)
	}
}

func TestFileBackend_CreatesDirectoryWithOwnerOnlyPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not enforced on windows")
	}
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nested", "config")
	backend, err := NewFileBackend(dir, "token")
	if err != nil {
		t.Fatalf("new file backend: %v", err)
	}
	if err := backend.Save(ctx, "tok_1"); err != nil {
		t.Fatalf("save: %v", err)
	}

	info, err := os.Stat(backend.Path())
	if err != nil {
		t.Fatalf("stat credential file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600 file, got %o", perm)
	}
	dirInfo, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("stat credential dir: %v", err)
	}
	if perm := dirInfo.Mode().Perm(); perm != 0o700 {
		t.Fatalf("expected 0700 dir, got %o", perm)
	}
}

func TestFileBackend_TrimsStoredWhitespace(t *testing.T) {
	ctx := context.Background()
	backend, err := NewFileBackend(t.TempDir(), "token")
	if err != nil {
		t.Fatalf("new file backend: %v", err)
	}
	if writeErr := os.WriteFile(backend.Path(), []byte("\n tok_1 \n"), 0o600); writeErr != nil {
		t.Fatalf("seed file: %v", writeErr)
	}

	token, present, loadErr := backend.Load(ctx)
	if loadErr != nil || !present || token != "tok_1" {
		t.Fatalf("unexpected load: %q %v %v", token, present, loadErr)
	}
}

func TestFileBackend_EmptyFileIsAbsent(t *testing.T) {
	ctx := context.Background()
	backend, err := NewFileBackend(t.TempDir(), "token")
	if err != nil {
		t.Fatalf("new file backend: %v", err)
	}
	if writeErr := os.WriteFile(backend.Path(), []byte("  \n"), 0o600); writeErr != nil {
		t.Fatalf("seed file: %v", writeErr)
	}
	if _, present, _ := backend.Load(ctx); present {
		t.Fatalf("expected blank file to read as absent")
	}
}

func TestSanitizeStorageKey(t *testing.T) {
	cases := []struct {
		input    string
		expected string
	}{
		{"storefront_access_token", "storefront_access_token"},
		{"my key/with:odd chars", "my_key_with_odd_chars"},
		{"  padded  ", "padded"},
		{"../escape", ".._escape"},
		{"///", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := sanitizeStorageKey(tc.input); got != tc.expected {
			t.Fatalf("sanitizeStorageKey(%q) = %q, expected %q", tc.input, got, tc.expected)
		}
	}
}

func TestNewFileBackend_RejectsUnusableKey(t *testing.T) {
	if _, err := NewFileBackend(t.TempDir(), "///"); err == nil {
		t.Fatalf("expected unusable key to be rejected")
	}
}
