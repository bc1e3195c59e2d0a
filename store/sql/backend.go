// Package sqlstore persists the storefront credential in a relational
// database, one row per storage key. It backs the credential store for
// deployments that already run SQLite or Postgres and want the token to
// survive restarts alongside the rest of their data.
package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Backend stores one credential row per storage key.
type Backend struct {
	db         *bun.DB
	repo       repository.Repository[*credentialRecord]
	storageKey string
}

func (b *Backend) Load(ctx context.Context) (string, bool, error) {
	if b == nil || b.repo == nil {
		return "", false, fmt.Errorf("sqlstore: credential backend is not configured")
	}
	records, _, err := b.repo.List(ctx,
		repository.SelectBy("storage_key", "=", b.storageKey),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return "", false, fmt.Errorf("sqlstore: load credential: %w", err)
	}
	if len(records) == 0 {
		return "", false, nil
	}
	token := strings.TrimSpace(records[0].Token)
	if token == "" {
		return "", false, nil
	}
	return token, true, nil
}

// Save upserts the row for the storage key: update in place when it exists,
// insert otherwise. Runs in a transaction so concurrent saves keep one row
// per key.
func (b *Backend) Save(ctx context.Context, token string) error {
	if b == nil || b.db == nil || b.repo == nil {
		return fmt.Errorf("sqlstore: credential backend is not configured")
	}
	now := time.Now().UTC()

	return b.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		result, err := tx.NewUpdate().
			Model((*credentialRecord)(nil)).
			Set("token = ?", token).
			Set("updated_at = ?", now).
			Where("storage_key = ?", b.storageKey).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("sqlstore: update credential: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlstore: update credential: %w", err)
		}
		if affected > 0 {
			return nil
		}

		record := &credentialRecord{
			ID:         uuid.NewString(),
			StorageKey: b.storageKey,
			Token:      token,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if _, err := b.repo.CreateTx(ctx, tx, record); err != nil {
			return fmt.Errorf("sqlstore: insert credential: %w", err)
		}
		return nil
	})
}

func (b *Backend) Delete(ctx context.Context) error {
	if b == nil || b.db == nil {
		return fmt.Errorf("sqlstore: credential backend is not configured")
	}
	_, err := b.db.NewDelete().
		Model((*credentialRecord)(nil)).
		Where("storage_key = ?", b.storageKey).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("sqlstore: delete credential: %w", err)
	}
	return nil
}
