// Package storefront wires the session coordinator, HTTP transport, and
// credential store into a ready-to-use client for storefront backends. Most
// consumers construct an App and drive it directly or through its commands.
package storefront

import (
	"context"
	"fmt"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/vitrinehq/go-storefront/command"
	"github.com/vitrinehq/go-storefront/core"
	"github.com/vitrinehq/go-storefront/store"
	"github.com/vitrinehq/go-storefront/transport"
)

type Commands struct {
	Login          *command.LoginCommand
	Register       *command.RegisterCommand
	Logout         *command.LogoutCommand
	Restore        *command.RestoreCommand
	RefreshProfile *command.RefreshProfileCommand
}

// App owns one resolved configuration, one credential store, one transport
// client, and one session built on top of them.
type App struct {
	config      core.Config
	credentials *store.TokenStore
	client      *transport.Client
	session     *core.Session
	commands    Commands
}

type appOptions struct {
	runtime         core.Config
	backend         store.Backend
	httpClient      transport.HTTPDoer
	logger          core.Logger
	loggerProvider  core.LoggerProvider
	metricsRecorder core.MetricsRecorder
	observers       []core.SessionObserver
	credentialDir   string
}

type Option func(*appOptions)

// WithConfig overrides individual configuration values at runtime. Non-empty
// fields win over the environment and the defaults.
func WithConfig(cfg core.Config) Option {
	return func(o *appOptions) {
		o.runtime = cfg
	}
}

// WithBackend swaps the durable credential backend; the default persists to a
// file under the user config directory.
func WithBackend(backend store.Backend) Option {
	return func(o *appOptions) {
		o.backend = backend
	}
}

func WithHTTPClient(doer transport.HTTPDoer) Option {
	return func(o *appOptions) {
		o.httpClient = doer
	}
}

func WithLogger(logger core.Logger) Option {
	return func(o *appOptions) {
		o.logger = logger
	}
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(o *appOptions) {
		o.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder core.MetricsRecorder) Option {
	return func(o *appOptions) {
		o.metricsRecorder = recorder
	}
}

func WithObserver(observer core.SessionObserver) Option {
	return func(o *appOptions) {
		if observer != nil {
			o.observers = append(o.observers, observer)
		}
	}
}

// WithCredentialDir places the default file backend under dir instead of the
// user config directory. Ignored when WithBackend is supplied.
func WithCredentialDir(dir string) Option {
	return func(o *appOptions) {
		o.credentialDir = dir
	}
}

// New resolves configuration once (defaults, then environment, then runtime
// overrides) and assembles the full stack.
func New(options ...Option) (*App, error) {
	cfg := appOptions{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	provider, logger := glog.Resolve("storefront", cfg.loggerProvider, cfg.logger)
	logger = glog.Ensure(logger)

	defaults := core.DefaultConfig()
	loaded, err := core.NewCfgxConfigProvider(core.EnvConfigLoader{}).Load(context.Background(), defaults)
	if err != nil {
		return nil, fmt.Errorf("storefront: load config: %w", err)
	}
	resolved, err := core.GoOptionsResolver{}.Resolve(defaults, loaded, cfg.runtime)
	if err != nil {
		return nil, fmt.Errorf("storefront: resolve config: %w", err)
	}

	backend := cfg.backend
	if backend == nil {
		fileBackend, backendErr := store.NewFileBackend(cfg.credentialDir, resolved.StorageKey)
		if backendErr != nil {
			return nil, fmt.Errorf("storefront: default credential backend: %w", backendErr)
		}
		backend = fileBackend
	}
	credentials := store.New(backend, store.WithLogger(logger))

	clientOptions := []transport.ClientOption{
		transport.WithTokenSource(credentials),
		transport.WithLogger(logger),
	}
	if cfg.httpClient != nil {
		clientOptions = append(clientOptions, transport.WithHTTPClient(cfg.httpClient))
	}
	client, err := transport.New(resolved.BaseURL, clientOptions...)
	if err != nil {
		return nil, fmt.Errorf("storefront: build transport client: %w", err)
	}

	sessionOptions := []core.Option{
		core.WithConfigProvider(core.StaticConfigProvider{Config: resolved}),
		core.WithAPIClient(client),
		core.WithCredentialStore(credentials),
		core.WithLogger(logger),
	}
	if provider != nil {
		sessionOptions = append(sessionOptions, core.WithLoggerProvider(provider))
	}
	if cfg.metricsRecorder != nil {
		sessionOptions = append(sessionOptions, core.WithMetricsRecorder(cfg.metricsRecorder))
	}
	for _, observer := range cfg.observers {
		sessionOptions = append(sessionOptions, core.WithObserver(observer))
	}

	session, err := core.NewSession(resolved, sessionOptions...)
	if err != nil {
		return nil, err
	}

	app := &App{
		config:      resolved,
		credentials: credentials,
		client:      client,
		session:     session,
	}
	app.commands = Commands{
		Login:          command.NewLoginCommand(session),
		Register:       command.NewRegisterCommand(session),
		Logout:         command.NewLogoutCommand(session),
		Restore:        command.NewRestoreCommand(session),
		RefreshProfile: command.NewRefreshProfileCommand(session),
	}
	return app, nil
}

func (a *App) Config() core.Config {
	if a == nil {
		return core.Config{}
	}
	return a.config
}

func (a *App) Session() *core.Session {
	if a == nil {
		return nil
	}
	return a.session
}

func (a *App) Client() *transport.Client {
	if a == nil {
		return nil
	}
	return a.client
}

func (a *App) Credentials() *store.TokenStore {
	if a == nil {
		return nil
	}
	return a.credentials
}

func (a *App) Commands() Commands {
	if a == nil {
		return Commands{}
	}
	return a.commands
}

// Restore replays the persisted credential at startup; see Session.Restore.
func (a *App) Restore(ctx context.Context) bool {
	if a == nil || a.session == nil {
		return false
	}
	return a.session.Restore(ctx)
}
