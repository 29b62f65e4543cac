package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/tastelanc/backoffice/internal/clock"
	"github.com/tastelanc/backoffice/internal/config"
	"github.com/tastelanc/backoffice/internal/migration"
	"github.com/tastelanc/backoffice/internal/observability"
	"github.com/tastelanc/backoffice/internal/scheduler"
	"github.com/tastelanc/backoffice/internal/server"
	"github.com/tastelanc/backoffice/pkg/db"
)

func main() {
	app := fx.New(
		// core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// http api and the domain services behind it
		server.Module,

		// background jobs
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
