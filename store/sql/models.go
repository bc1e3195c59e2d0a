package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type credentialRecord struct {
	bun.BaseModel `bun:"table:storefront_credentials,alias:sfc"`

	ID         string    `bun:"id,pk"`
	StorageKey string    `bun:"storage_key,notnull,unique"`
	Token      string    `bun:"token,notnull"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
