package migration

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/autobill/internal/config"
	"github.com/smallbiznis/autobill/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, node *snowflake.Node, log *zap.Logger) error {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}

		if err := RunMigrations(sqlDB, cfg.DBType); err != nil {
			return err
		}
		log.Info("db.migrations.applied", zap.String("dialect", cfg.DBType))

		if !cfg.SeedData {
			return nil
		}
		created, err := seed.EnsureSampleData(context.Background(), conn, node, seed.DefaultOptions())
		if err != nil {
			return err
		}
		log.Info("db.seed.completed", zap.Int("customers", created))
		return nil
	}),
)
