package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/autobill/internal/billing"
	"github.com/smallbiznis/autobill/internal/cache"
	"github.com/smallbiznis/autobill/internal/clock"
	"github.com/smallbiznis/autobill/internal/config"
	"github.com/smallbiznis/autobill/internal/customer"
	"github.com/smallbiznis/autobill/internal/invoice"
	"github.com/smallbiznis/autobill/internal/logger"
	"github.com/smallbiznis/autobill/internal/migration"
	"github.com/smallbiznis/autobill/internal/notification"
	"github.com/smallbiznis/autobill/internal/observability"
	"github.com/smallbiznis/autobill/internal/payment"
	"github.com/smallbiznis/autobill/internal/providers"
	"github.com/smallbiznis/autobill/internal/ratelimit"
	"github.com/smallbiznis/autobill/internal/scheduler"
	"github.com/smallbiznis/autobill/internal/server"
	"github.com/smallbiznis/autobill/pkg/db"
	"go.uber.org/fx"
)

func main() {
	fx.New(appOptions()).Run()
}

func appOptions() fx.Option {
	return fx.Options(
		// Core Infrastructure
		config.Module,
		logger.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		ratelimit.Module,

		// Functional Domains
		cache.Module,
		customer.Module,
		invoice.Module,
		payment.Module,
		providers.Module,
		notification.Module,
		billing.Module,

		// Triggers
		scheduler.Module,
		server.Module,
	)
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
