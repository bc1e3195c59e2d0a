package sqlstore_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	sqlstore "github.com/vitrinehq/go-storefront/store/sql"
)

type testPersistenceConfig struct {
	driver string
	server string
}

func (c testPersistenceConfig) GetDebug() bool {
	return false
}

func (c testPersistenceConfig) GetDriver() string {
	return c.driver
}

func (c testPersistenceConfig) GetServer() string {
	return c.server
}

func (c testPersistenceConfig) GetPingTimeout() time.Duration {
	return time.Second
}

func (c testPersistenceConfig) GetOtelIdentifier() string {
	return "go-storefront-tests"
}

func newSQLiteClient(t *testing.T) *persistence.Client {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:storefront-test-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	cfg := testPersistenceConfig{
		driver: "sqlite3",
		server: dsn,
	}
	client, err := persistence.New(cfg, sqlDB, sqlitedialect.New())
	if err != nil {
		_ = sqlDB.Close()
		t.Fatalf("new persistence client: %v", err)
	}

	sqlstore.RegisterMigrations(client)
	if err := client.Migrate(context.Background()); err != nil {
		_ = client.Close()
		t.Fatalf("run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func TestSQLBackend_SaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	client := newSQLiteClient(t)

	backend, err := sqlstore.NewBackendFromPersistence(client, "storefront_access_token")
	if err != nil {
		t.Fatalf("new backend: %v", err)
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

func TestSQLBackend_SaveOverwritesExistingRow(t *testing.T) {
	ctx := context.Background()
	client := newSQLiteClient(t)

	backend, err := sqlstore.NewBackendFromPersistence(client, "storefront_access_token")
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}

	if err := backend.Save(ctx, "tok_1"); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := backend.Save(ctx, "tok_2"); err != nil {
		t.Fatalf("second save: %v", err)
	}

	token, present, err := backend.Load(ctx)
	if err != nil || !present || token != "tok_2" {
		t.Fatalf("expected tok_2, got %q %v %v", token, present, err)
	}

	var count int
	if err := client.DB().NewSelect().
		Table("storefront_credentials").
		ColumnExpr("COUNT(*)").
		Scan(ctx, &count); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single row per storage key, got %d", count)
	}
}

func TestSQLBackend_StorageKeysAreIsolated(t *testing.T) {
	ctx := context.Background()
	client := newSQLiteClient(t)

	first, err := sqlstore.NewBackendFromPersistence(client, "key_a")
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	second, err := sqlstore.NewBackendFromPersistence(client, "key_b")
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}

	if err := first.Save(ctx, "tok_a"); err != nil {
		t.Fatalf("save first: %v", err)
	}
	if err := second.Save(ctx, "tok_b"); err != nil {
		t.Fatalf("save second: %v", err)
	}
	if err := first.Delete(ctx); err != nil {
		t.Fatalf("delete first: %v", err)
	}

	if _, present, _ := first.Load(ctx); present {
		t.Fatalf("expected key_a cleared")
	}
	token, present, err := second.Load(ctx)
	if err != nil || !present || token != "tok_b" {
		t.Fatalf("expected key_b untouched, got %q %v %v", token, present, err)
	}
}

func TestSQLBackend_BlankTokenReadsAsAbsent(t *testing.T) {
	ctx := context.Background()
	client := newSQLiteClient(t)

	backend, err := sqlstore.NewBackendFromPersistence(client, "storefront_access_token")
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	if err := backend.Save(ctx, "   "); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, present, _ := backend.Load(ctx); present {
		t.Fatalf("expected whitespace token to read as absent")
	}
}

func TestNewBackendFromDB_DefaultsStorageKey(t *testing.T) {
	client := newSQLiteClient(t)

	backend, err := sqlstore.NewBackendFromDB(client.DB(), "   ")
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	ctx := context.Background()
	if err := backend.Save(ctx, "tok_default"); err != nil {
		t.Fatalf("save: %v", err)
	}

	var storageKey string
	if err := client.DB().NewSelect().
		Table("storefront_credentials").
		Column("storage_key").
		Limit(1).
		Scan(ctx, &storageKey); err != nil {
		t.Fatalf("read storage key: %v", err)
	}
	if storageKey != "storefront_access_token" {
		t.Fatalf("expected default storage key, got %q", storageKey)
	}
}
