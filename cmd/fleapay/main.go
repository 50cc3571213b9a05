package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/furima-share/fleapay/internal/clock"
	"github.com/furima-share/fleapay/internal/config"
	"github.com/furima-share/fleapay/internal/migration"
	"github.com/furima-share/fleapay/internal/observability"
	"github.com/furima-share/fleapay/internal/server"
	"github.com/furima-share/fleapay/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
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
