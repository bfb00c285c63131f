package storage

import (
	"context"
	"fmt"

	"github.com/smallbiznis/detailflow/internal/config"
	"github.com/smallbiznis/detailflow/internal/storage/domain"
	"github.com/smallbiznis/detailflow/internal/storage/gcs"
	"github.com/smallbiznis/detailflow/internal/storage/r2"
	"github.com/smallbiznis/detailflow/internal/storage/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("storage",
	fx.Provide(NewBackend),
	fx.Provide(service.New),
)

// NewBackend picks the object store named by STORAGE_PROVIDER.
func NewBackend(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (domain.Backend, error) {
	switch cfg.Storage.Provider {
	case config.StorageProviderR2, config.StorageProviderS3, "":
		backend, err := r2.New(cfg.Storage)
		if err != nil {
			return nil, err
		}
		log.Info("storage backend ready", zap.String("provider", backend.Name()), zap.String("bucket", cfg.Storage.Bucket))
		return backend, nil
	case config.StorageProviderGCS:
		backend, err := gcs.New(context.Background(), cfg.Storage)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return backend.Close()
			},
		})
		log.Info("storage backend ready", zap.String("provider", backend.Name()), zap.String("bucket", cfg.Storage.Bucket))
		return backend, nil
	default:
		return nil, fmt.Errorf("unsupported storage provider %q", cfg.Storage.Provider)
	}
}
