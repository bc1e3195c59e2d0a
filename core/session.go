package core

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

const (
	loginPath    = "auth/login"
	registerPath = "auth/register"
	logoutPath   = "auth/logout"
	profilePath  = "users/me"
)

type hydrateMode int

const (
	// hydrateLenient trusts the identity embedded in a fresh login response
	// when the full profile cannot be fetched; the credential survives.
	hydrateLenient hydrateMode = iota
	// hydrateStrict treats a failed fetch as an invalid session: the
	// credential is cleared and the session returns to anonymous.
	hydrateStrict
	// hydrateRefresh keeps the current identity when a manual refresh fails.
	hydrateRefresh
)

// Session coordinates the authentication lifecycle: login, registration,
// profile hydration, and logout. It is the only component with externally
// observable state transitions; dependent code reads Snapshot or subscribes
// via SessionObserver.
//
// Every credential change bumps an internal epoch. Responses from fetches
// started under an older epoch are discarded so an identity can never attach
// to a credential it was not fetched under.
type Session struct {
	config          Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorMapper     ErrorMapper
	api             APIClient
	credentials     CredentialStore
	observers       []SessionObserver

	mu        sync.Mutex
	epoch     uint64
	identity  *Identity
	loading   bool
	lastError string
	authed    bool
}

func NewSession(cfg Config, options ...Option) (*Session, error) {
	builder := defaultSessionBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("storefront", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("storefront"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(EnvConfigLoader{})
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.apiClient == nil {
		return nil, mapBuildError(builder.errorMapper, fmt.Errorf("core: api client is required"))
	}
	if builder.credentialStore == nil {
		return nil, mapBuildError(builder.errorMapper, fmt.Errorf("core: credential store is required"))
	}

	return &Session{
		config:          finalConfig,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		errorMapper:     builder.errorMapper,
		api:             builder.apiClient,
		credentials:     builder.credentialStore,
		observers:       builder.observers,
	}, nil
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	if mapped := mapper(err); mapped != nil {
		return mapped
	}
	return err
}

func (s *Session) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

// Snapshot returns the current observable state. The Identity pointer is a
// copy; mutating it does not affect the session.
func (s *Session) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) Authenticated() bool {
	return s.Snapshot().Authenticated
}

func (s *Session) Loading() bool {
	return s.Snapshot().Loading
}

func (s *Session) LastError() string {
	return s.Snapshot().LastError
}

func (s *Session) Identity() *Identity {
	return s.Snapshot().Identity
}

// Login authenticates against the backend and, on success, hydrates the full
// profile. A response without an access token is not an error: the result is
// returned and session state does not transition.
//
// Failures are reported twice: the message lands in Snapshot.LastError for
// passive display and the error is returned so submit handlers can react.
func (s *Session) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	if s == nil {
		return LoginResult{}, fmt.Errorf("core: session is nil")
	}
	startedAt := time.Now().UTC()
	if err := req.Validate(); err != nil {
		return LoginResult{}, s.failOperation(ctx, startedAt, "login", err)
	}
	s.beginOperation()

	res, err := s.api.Request(ctx, APIRequest{
		Method: http.MethodPost,
		Path:   loginPath,
		Body: map[string]any{
			"email":    strings.TrimSpace(req.Email),
			"password": req.Password,
		},
	})
	if err != nil {
		return LoginResult{}, s.failOperation(ctx, startedAt, "login", err)
	}

	var payload loginPayload
	if err := res.Decode(&payload); err != nil {
		return LoginResult{}, s.failOperation(ctx, startedAt, "login", err)
	}
	result := payload.toResult()

	if result.AccessToken == "" {
		s.endOperation()
		s.observeOperation(ctx, startedAt, "login", nil, map[string]any{"token_issued": false})
		return result, nil
	}

	epoch := s.adoptCredential(ctx, result.AccessToken)
	s.hydrateProfile(ctx, epoch, hydrateLenient, result.User)
	s.endOperation()
	s.observeOperation(ctx, startedAt, "login", nil, map[string]any{"token_issued": true})
	return result, nil
}

// Register creates an account. It never transitions session state: the caller
// decides whether to follow up with Login. Error reporting mirrors Login.
func (s *Session) Register(ctx context.Context, req RegisterRequest) (RegisterResult, error) {
	if s == nil {
		return RegisterResult{}, fmt.Errorf("core: session is nil")
	}
	startedAt := time.Now().UTC()
	if err := req.Validate(); err != nil {
		return RegisterResult{}, s.failOperation(ctx, startedAt, "register", err)
	}
	s.beginOperation()

	res, err := s.api.Request(ctx, APIRequest{
		Method: http.MethodPost,
		Path:   registerPath,
		Body: map[string]any{
			"username":     strings.TrimSpace(req.Username),
			"email":        strings.TrimSpace(req.Email),
			"password":     req.Password,
			"full_name":    strings.TrimSpace(req.FullName),
			"phone_number": strings.TrimSpace(req.PhoneNumber),
		},
	})
	if err != nil {
		return RegisterResult{}, s.failOperation(ctx, startedAt, "register", err)
	}

	var payload registerPayload
	if err := res.Decode(&payload); err != nil {
		return RegisterResult{}, s.failOperation(ctx, startedAt, "register", err)
	}

	s.endOperation()
	s.observeOperation(ctx, startedAt, "register", nil, nil)
	return payload.toResult(), nil
}

// Restore re-establishes a session from the persisted credential, typically
// at process start. Hydration is strict: if the profile cannot be fetched the
// persisted credential is treated as stale and cleared. Returns whether the
// session ended up authenticated.
func (s *Session) Restore(ctx context.Context) bool {
	if s == nil {
		return false
	}
	startedAt := time.Now().UTC()
	token, ok := s.credentials.Get(ctx)
	if !ok || strings.TrimSpace(token) == "" {
		return false
	}

	s.mu.Lock()
	s.epoch++
	epoch := s.epoch
	s.authed = true
	s.identity = nil
	s.loading = true
	s.lastError = ""
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(snap)

	s.hydrateProfile(ctx, epoch, hydrateStrict, nil)
	s.endOperation()

	s.mu.Lock()
	authed := s.authed
	s.mu.Unlock()
	s.observeOperation(ctx, startedAt, "restore", nil, map[string]any{"authenticated": authed})
	return authed
}

// FetchProfile re-fetches the full profile for the current credential. With
// no identity yet it behaves like Restore (strict); with one present a
// failure keeps the existing identity.
func (s *Session) FetchProfile(ctx context.Context) {
	if s == nil {
		return
	}
	s.mu.Lock()
	if !s.authed {
		s.mu.Unlock()
		return
	}
	epoch := s.epoch
	mode := hydrateRefresh
	if s.identity == nil {
		mode = hydrateStrict
	}
	s.loading = true
	s.lastError = ""
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(snap)

	s.hydrateProfile(ctx, epoch, mode, nil)
	s.endOperation()
}

// Logout clears the credential, identity, and error unconditionally, then
// notifies the server on a best-effort basis. The local session is gone even
// when the server call fails.
func (s *Session) Logout(ctx context.Context) {
	if s == nil {
		return
	}
	startedAt := time.Now().UTC()

	s.mu.Lock()
	token, _ := s.credentials.Get(ctx)
	s.credentials.Clear(ctx)
	s.epoch++
	s.identity = nil
	s.authed = false
	s.lastError = ""
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(snap)

	if strings.TrimSpace(token) != "" {
		_, err := s.api.Request(ctx, APIRequest{
			Method:  http.MethodPost,
			Path:    logoutPath,
			Headers: map[string]string{"Authorization": "Bearer " + token},
		})
		if err != nil {
			s.logInfo(ctx, "server-side logout failed", map[string]any{"error": err.Error()})
		}
	}
	s.observeOperation(ctx, startedAt, "logout", nil, nil)
}

// SetUser forces the identity without touching the credential. Passing nil
// clears it.
func (s *Session) SetUser(identity *Identity) {
	if s == nil {
		return
	}
	s.mu.Lock()
	if identity == nil {
		s.identity = nil
	} else {
		cloned := *identity
		s.identity = &cloned
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(snap)
}

// adoptCredential installs a freshly issued token. The previous identity is
// invalidated before any new fetch starts.
func (s *Session) adoptCredential(ctx context.Context, token string) uint64 {
	s.mu.Lock()
	s.credentials.Set(ctx, token)
	s.epoch++
	epoch := s.epoch
	s.identity = nil
	s.authed = true
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(snap)
	return epoch
}

func (s *Session) hydrateProfile(ctx context.Context, epoch uint64, mode hydrateMode, fallback *Identity) {
	res, err := s.api.Request(ctx, APIRequest{
		Method: http.MethodGet,
		Path:   profilePath,
	})
	var envelope profileEnvelope
	if err == nil {
		err = res.Decode(&envelope)
	}

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		s.logInfo(ctx, "discarding stale profile response", map[string]any{
			"fetched_epoch": epoch,
		})
		return
	}

	if err != nil {
		switch mode {
		case hydrateStrict:
			s.credentials.Clear(ctx)
			s.epoch++
			s.identity = nil
			s.authed = false
			snap := s.snapshotLocked()
			s.mu.Unlock()
			s.publish(snap)
			s.logError(ctx, "profile hydration failed, session invalidated", map[string]any{
				"error":     err.Error(),
				"text_code": ErrorSessionInvalid,
			})
		case hydrateLenient:
			if fallback != nil {
				cloned := *fallback
				s.identity = &cloned
			}
			snap := s.snapshotLocked()
			s.mu.Unlock()
			s.publish(snap)
			s.logInfo(ctx, "profile hydration failed, trusting login payload", map[string]any{
				"error":        err.Error(),
				"has_fallback": fallback != nil,
			})
		default:
			s.mu.Unlock()
			s.logInfo(ctx, "profile refresh failed, keeping current identity", map[string]any{
				"error": err.Error(),
			})
		}
		return
	}

	identity := envelope.Data.toDomain()
	s.identity = &identity
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(snap)
}

func (s *Session) beginOperation() {
	s.mu.Lock()
	s.loading = true
	s.lastError = ""
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(snap)
}

func (s *Session) endOperation() {
	s.mu.Lock()
	s.loading = false
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(snap)
}

func (s *Session) failOperation(ctx context.Context, startedAt time.Time, operation string, err error) error {
	mapped := s.mapError(err)
	s.mu.Lock()
	s.loading = false
	s.lastError = userMessage(mapped)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(snap)
	s.observeOperation(ctx, startedAt, operation, mapped, nil)
	return mapped
}

func (s *Session) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	if mapped := s.errorMapper(err); mapped != nil {
		return mapped
	}
	return err
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		Authenticated: s.authed,
		Loading:       s.loading,
		LastError:     s.lastError,
	}
	if s.identity != nil {
		cloned := *s.identity
		snap.Identity = &cloned
	}
	return snap
}

func (s *Session) publish(snap Snapshot) {
	for _, observer := range s.observers {
		if observer == nil {
			continue
		}
		observer.SessionChanged(snap)
	}
}
