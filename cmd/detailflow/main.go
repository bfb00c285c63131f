package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/detailflow/internal/clock"
	"github.com/smallbiznis/detailflow/internal/migration"
	"github.com/smallbiznis/detailflow/internal/observability"
	"github.com/smallbiznis/detailflow/internal/server"
	"github.com/smallbiznis/detailflow/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Config, domains and the HTTP server
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
