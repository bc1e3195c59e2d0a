package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	repository "github.com/goliatone/go-repository-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/vitrinehq/go-storefront/core"
	"github.com/vitrinehq/go-storefront/store"
)

func NewBackendFromPersistence(client *persistence.Client, storageKey string) (*Backend, error) {
	if client == nil {
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	}
	return NewBackendFromDB(client.DB(), storageKey)
}

func NewBackendFromDB(db *bun.DB, storageKey string) (*Backend, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	storageKey = strings.TrimSpace(storageKey)
	if storageKey == "" {
		storageKey = core.DefaultStorageKey
	}

	repo := repository.NewRepository[*credentialRecord](db, credentialHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid credential repository wiring: %w", err)
		}
	}

	return &Backend{
		db:         db,
		repo:       repo,
		storageKey: storageKey,
	}, nil
}

// ClientConfig satisfies the persistence client's configuration contract.
type ClientConfig struct {
	Debug       bool
	Driver      string
	Server      string
	PingTimeout time.Duration
}

func (c ClientConfig) GetDebug() bool {
	return c.Debug
}

func (c ClientConfig) GetDriver() string {
	return c.Driver
}

func (c ClientConfig) GetServer() string {
	return c.Server
}

func (c ClientConfig) GetPingTimeout() time.Duration {
	if c.PingTimeout <= 0 {
		return time.Second
	}
	return c.PingTimeout
}

func (c ClientConfig) GetOtelIdentifier() string {
	return "go-storefront"
}

// NewSQLiteClient opens a SQLite-backed persistence client and registers the
// credential migrations. Callers own client.Migrate and client.Close.
func NewSQLiteClient(dsn string) (*persistence.Client, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("sqlstore: sqlite dsn is required")
	}
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open sqlite db: %w", err)
	}

	cfg := ClientConfig{Driver: "sqlite3", Server: dsn}
	client, err := persistence.New(cfg, sqlDB, sqlitedialect.New())
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: new persistence client: %w", err)
	}
	RegisterMigrations(client)
	return client, nil
}

// NewPostgresClient mirrors NewSQLiteClient for Postgres connection strings.
func NewPostgresClient(dsn string) (*persistence.Client, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("sqlstore: postgres dsn is required")
	}
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open postgres db: %w", err)
	}

	cfg := ClientConfig{Driver: "postgres", Server: dsn}
	client, err := persistence.New(cfg, sqlDB, pgdialect.New())
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: new persistence client: %w", err)
	}
	RegisterMigrations(client)
	return client, nil
}

var _ store.Backend = (*Backend)(nil)
