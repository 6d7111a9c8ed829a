package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/appnity-softwares/digitalEcom-sub002/internal/alert"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/apikey"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/cart"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/catalog"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/clock"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/config"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/entitlement"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/gateway"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/migration"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/observability"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/order"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/server"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/subscription"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/sweeper"
	"github.com/appnity-softwares/digitalEcom-sub002/pkg/db"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Functional domains
		catalog.Module,
		gateway.Module,
		order.Module,
		cart.Module,
		subscription.Module,
		apikey.Module,
		alert.Module,
		entitlement.Module,
		sweeper.Module,

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
