package db

import (
	"context"
	"fmt"
	"time"

	"github.com/smallbiznis/autobill/internal/config"
	"github.com/smallbiznis/autobill/internal/observability"
	obslogger "github.com/smallbiznis/autobill/internal/observability/logger"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormprometheus "gorm.io/plugin/prometheus"
)

var Module = fx.Module("db",
	fx.Provide(NewDB),
)

const (
	maxOpenConns    = 25
	maxIdleConns    = 5
	connMaxLifetime = 30 * time.Minute

	statsRefreshSeconds = 15
)

func NewDB(lc fx.Lifecycle, cfg config.Config, obsCfg observability.Config, log *zap.Logger) (*gorm.DB, error) {
	conn, err := Open(cfg, obslogger.NewGormLogger(obslogger.DefaultGormLoggerConfig(obsCfg.Debug())))
	if err != nil {
		return nil, err
	}

	if err := usePlugins(conn, cfg, obsCfg); err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	if cfg.DBType == "sqlite" {
		// sqlite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(maxOpenConns)
		sqlDB.SetMaxIdleConns(maxIdleConns)
		sqlDB.SetConnMaxLifetime(connMaxLifetime)
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := sqlDB.PingContext(ctx); err != nil {
				return fmt.Errorf("ping database: %w", err)
			}
			log.Info("db.connected", zap.String("type", cfg.DBType))
			return nil
		},
		OnStop: func(context.Context) error {
			return sqlDB.Close()
		},
	})
	return conn, nil
}

// usePlugins attaches query tracing and connection pool metrics.
func usePlugins(conn *gorm.DB, cfg config.Config, obsCfg observability.Config) error {
	if obsCfg.OtelEnabled {
		if err := conn.Use(otelgorm.NewPlugin(
			otelgorm.WithDBName(cfg.DBName),
			otelgorm.WithoutQueryVariables(),
		)); err != nil {
			return fmt.Errorf("register gorm tracing: %w", err)
		}
	}
	if err := conn.Use(gormprometheus.New(gormprometheus.Config{
		DBName:          cfg.DBName,
		RefreshInterval: statsRefreshSeconds,
		Labels:          map[string]string{"service": obsCfg.ServiceName},
	})); err != nil {
		return fmt.Errorf("register gorm metrics: %w", err)
	}
	return nil
}

// Open connects with the configured dialect and the given gorm logger.
func Open(cfg config.Config, logger *obslogger.GormLogger) (*gorm.DB, error) {
	dialector, err := Dialect(cfg)
	if err != nil {
		return nil, err
	}
	gormCfg := &gorm.Config{NowFunc: func() time.Time { return time.Now().UTC() }}
	if logger != nil {
		gormCfg.Logger = logger
	}
	conn, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.DBType, err)
	}
	return conn, nil
}
