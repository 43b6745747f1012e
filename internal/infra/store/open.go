// Package store selects and opens the configured usage store.
package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"skillcat/internal/domain"
	"skillcat/internal/infra/store/boltstore"
	"skillcat/internal/infra/store/sqlitestore"
)

// Open returns the usage store for cfg.Driver.
func Open(ctx context.Context, cfg domain.StoreConfig, logger *zap.Logger) (domain.UsageStore, error) {
	switch cfg.Driver {
	case "", domain.StoreDriverSQLite:
		s, err := sqlitestore.Open(ctx, cfg.Path, logger)
		if err != nil {
			return nil, domain.Wrap(domain.CodeUnavailable, "open usage store", err)
		}
		return s, nil
	case domain.StoreDriverBolt:
		s, err := boltstore.Open(cfg.Path, logger)
		if err != nil {
			return nil, domain.Wrap(domain.CodeUnavailable, "open usage store", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownDriver, cfg.Driver)
	}
}
