package store

import (
	"context"
	"strings"
	"sync"

	glog "github.com/goliatone/go-logger/glog"
)

// Backend is durable whole-value storage for one credential. No partial
// writes: Load/Save/Delete each act on the entire value.
type Backend interface {
	Load(ctx context.Context) (string, bool, error)
	Save(ctx context.Context, token string) error
	Delete(ctx context.Context) error
}

// TokenStore caches the credential in process so it can be read before any
// network call completes and without repeated backend reads. The store is
// the source of truth on reload; a failed durable write keeps the in-process
// value usable for the lifetime of the process.
type TokenStore struct {
	mu      sync.Mutex
	backend Backend
	logger  glog.Logger

	cached string
	loaded bool
}

type TokenStoreOption func(*TokenStore)

func WithLogger(logger glog.Logger) TokenStoreOption {
	return func(s *TokenStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(backend Backend, options ...TokenStoreOption) *TokenStore {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	store := &TokenStore{
		backend: backend,
		logger:  glog.Ensure(nil),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(store)
	}
	return store
}

// Get returns the cached credential, falling back to one backend read. It
// never fails: a backend error is logged and reported as absent. The miss is
// cached too, so a broken backend is consulted once per process.
func (s *TokenStore) Get(ctx context.Context) (string, bool) {
	if s == nil {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return s.cached, s.cached != ""
	}

	token, present, err := s.backend.Load(ctx)
	if err != nil {
		s.logger.Error("credential load failed, treating as absent", "error", err.Error())
		token, present = "", false
	}
	if !present {
		token = ""
	}
	s.cached = strings.TrimSpace(token)
	s.loaded = true
	return s.cached, s.cached != ""
}

// Set caches the credential and writes through to the backend. A durable
// write failure does not roll back the in-process value.
func (s *TokenStore) Set(ctx context.Context, token string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cached = strings.TrimSpace(token)
	s.loaded = true
	if err := s.backend.Save(ctx, s.cached); err != nil {
		s.logger.Error("credential write-through failed, in-process value retained", "error", err.Error())
	}
}

// Clear drops the cache and removes the durable copy, with the same failure
// tolerance as Set.
func (s *TokenStore) Clear(ctx context.Context) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cached = ""
	s.loaded = true
	if err := s.backend.Delete(ctx); err != nil {
		s.logger.Error("credential delete failed, in-process value cleared", "error", err.Error())
	}
}

// MemoryBackend holds the credential in memory only; it does not survive a
// process restart. Useful for tests and ephemeral consumers.
type MemoryBackend struct {
	mu      sync.Mutex
	token   string
	present bool
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (b *MemoryBackend) Load(context.Context) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.token, b.present, nil
}

func (b *MemoryBackend) Save(_ context.Context, token string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.token = token
	b.present = true
	return nil
}

func (b *MemoryBackend) Delete(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.token = ""
	b.present = false
	return nil
}

var _ Backend = (*MemoryBackend)(nil)
