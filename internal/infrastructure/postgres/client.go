package postgres

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/fastygo/teamspace/internal/config"
)

// TriggerChannel is the channel notify_workspace_change publishes on.
const TriggerChannel = "workspace_changes"

const (
	connectAttempts = 3
	connectBackoff  = 2 * time.Second
)

// PoolOptions sizes the pool for the service's own needs.
type PoolOptions struct {
	AppName string
	// Listeners are connections held open by LISTEN. They come on top of
	// the configured maximum so that queries never wait behind them.
	Listeners int
}

// NewPool opens the pool the tables and the change listener share. Sessions
// run in UTC so that month windows and due dates compare the same way
// everywhere.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, opts PoolOptions, logger *zap.Logger) (*pgxpool.Pool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	pgxCfg, err := pgxpool.ParseConfig(DSN(cfg))
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		pgxCfg.MaxConns = int32(cfg.MaxOpenConns + opts.Listeners)
	}
	if cfg.MaxIdleConns > 0 {
		pgxCfg.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.MaxConnLifetime > 0 {
		pgxCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pgxCfg.HealthCheckPeriod = 30 * time.Second
	pgxCfg.ConnConfig.RuntimeParams["timezone"] = "UTC"
	if opts.AppName != "" {
		pgxCfg.ConnConfig.RuntimeParams["application_name"] = opts.AppName
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = pool.Ping(pingCtx)
		cancel()
		if err == nil {
			break
		}
		if attempt == connectAttempts || ctx.Err() != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres: ping after %d attempts: %w", attempt, err)
		}
		logger.Warn("postgres not ready, retrying", zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			pool.Close()
			return nil, ctx.Err()
		case <-time.After(connectBackoff):
		}
	}

	logger.Info("connected to postgres",
		zap.String("host", pgxCfg.ConnConfig.Host),
		zap.String("db", pgxCfg.ConnConfig.Database),
		zap.Int32("max_conns", pgxCfg.MaxConns),
	)
	return pool, nil
}

// DSN returns the configured URL or builds one from the discrete settings.
func DSN(cfg config.DatabaseConfig) string {
	if cfg.URL != "" {
		return cfg.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     cfg.Host + ":" + cfg.Port,
		Path:     "/" + cfg.Name,
		RawQuery: url.Values{"sslmode": {cfg.SSLMode}}.Encode(),
	}
	return u.String()
}

// CheckChannel reports whether the listener will hear the schema's trigger.
func CheckChannel(channel string, logger *zap.Logger) bool {
	if channel == TriggerChannel {
		return true
	}
	if logger != nil {
		logger.Warn("notify channel differs from the trigger channel; live views will not see store changes",
			zap.String("configured", channel),
			zap.String("trigger", TriggerChannel),
		)
	}
	return false
}
