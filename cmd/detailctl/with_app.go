package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/detailflow/internal/apikey"
	apikeydomain "github.com/smallbiznis/detailflow/internal/apikey/domain"
	"github.com/smallbiznis/detailflow/internal/clock"
	"github.com/smallbiznis/detailflow/internal/config"
	"github.com/smallbiznis/detailflow/internal/observability/logger"
	"github.com/smallbiznis/detailflow/internal/organization"
	organizationdomain "github.com/smallbiznis/detailflow/internal/organization/domain"
	"github.com/smallbiznis/detailflow/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

// services are the domain handles admin commands work with.
type services struct {
	Orgs    organizationdomain.Service
	APIKeys apikeydomain.Service
}

// withApp boots the database-backed services for one command and tears them down afterwards.
func withApp(run func(cmd *cobra.Command, svc services) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		var svc services
		app := fx.New(
			fx.NopLogger,
			fx.Provide(config.Load),
			fx.Provide(func(cfg config.Config) logger.Config {
				return logger.Config{
					ServiceName: "detailctl",
					Environment: cfg.Environment,
					Version:     cfg.AppVersion,
					Level:       logLevel,
					Format:      "console",
				}
			}),
			fx.Provide(logger.New),
			fx.Provide(func() (*snowflake.Node, error) { return snowflake.NewNode(2) }),
			db.Module,
			clock.Module,
			organization.Module,
			apikey.Module,
			fx.Populate(&svc.Orgs, &svc.APIKeys),
		)

		startCtx, cancelStart := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancelStart()
		if err := app.Start(startCtx); err != nil {
			return fmt.Errorf("start application: %w", err)
		}
		defer func() {
			stopCtx, cancelStop := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelStop()
			_ = app.Stop(stopCtx)
		}()

		return run(cmd, svc)
	}
}
