package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/parsbill/parsbill/internal/clock"
	"github.com/parsbill/parsbill/internal/config"
	"github.com/parsbill/parsbill/internal/joblock"
	"github.com/parsbill/parsbill/internal/logger"
	"github.com/parsbill/parsbill/internal/migration"
	obsmetrics "github.com/parsbill/parsbill/internal/observability/metrics"
	"github.com/parsbill/parsbill/internal/scheduler"
	"github.com/parsbill/parsbill/internal/server"
	"github.com/parsbill/parsbill/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		obsmetrics.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		joblock.Module,

		server.Module,
		scheduler.Module,
		migration.Module,
	)
	app.Run()
}

func registerSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
