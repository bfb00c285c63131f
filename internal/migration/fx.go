package migration

import (
	"context"

	"github.com/smallbiznis/detailflow/internal/config"
	"github.com/smallbiznis/detailflow/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if cfg.DBType != "postgres" {
			log.Warn("schema migrations skipped: only postgres is migrated", zap.String("db_type", cfg.DBType))
		} else {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		}

		if cfg.Bootstrap.DemoOrgSlug == "" {
			return nil
		}
		_, err := seed.EnsureOrganization(context.Background(), conn, cfg.Bootstrap.DemoOrgSlug, cfg.Bootstrap.DemoOrgName)
		return err
	}),
)
