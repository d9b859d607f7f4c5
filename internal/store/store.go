package store

import (
	"context"
	"fmt"

	"github.com/blackmichael/bluesky-autoposter/internal/config"
	"github.com/blackmichael/bluesky-autoposter/internal/domain"
)

// Open returns the seen-post store selected by cfg. namespace keeps profiles
// apart in shared backends; the file store is already per-profile by path.
func Open(ctx context.Context, cfg config.StoreConfig, namespace string) (domain.SeenStore, error) {
	switch cfg.Type {
	case config.StoreFile, "":
		return NewFileStore(cfg.Path), nil
	case config.StoreSQLite:
		return OpenSQLite(ctx, cfg.Path, namespace)
	case config.StorePostgres:
		return OpenPostgres(ctx, cfg.DSN, namespace)
	case config.StoreDynamoDB:
		return OpenDynamoDB(ctx, cfg, namespace)
	case config.StoreMongoDB:
		return OpenMongo(ctx, cfg.DSN, cfg.Database, namespace)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Type)
	}
}

// ReadOnly wraps a store so that Add records into memory only. Dry runs use
// it to walk the dispatch path without persisting anything.
type ReadOnly struct {
	domain.SeenStore
}

func NewReadOnly(s domain.SeenStore) *ReadOnly {
	return &ReadOnly{SeenStore: s}
}

func (r *ReadOnly) Add(ctx context.Context, uri string) error {
	return nil
}
