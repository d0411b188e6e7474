package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/lmsworks/member-service/internal/logger"
)

// DBOptions configures the database/sql pool in front of pgx.
type DBOptions struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
}

func (c *Config) DB() DBOptions {
	return DBOptions{
		DSN:             c.DatabaseURL,
		MaxOpenConns:    c.DBMaxOpenConns,
		MaxIdleConns:    c.DBMaxIdleConns,
		ConnMaxIdleTime: 5 * time.Minute,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     5 * time.Second,
	}
}

// OpenDB parses the DSN with pgx, opens a pool and pings it. A malformed
// DSN fails before any network traffic.
func OpenDB(ctx context.Context, opts DBOptions) (*sql.DB, error) {
	if opts.DSN == "" {
		return nil, errors.New("config: empty database DSN")
	}
	connCfg, err := pgx.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("config: parse database DSN: %w", err)
	}

	db := stdlib.OpenDB(*connCfg)
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	if opts.PingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.PingTimeout)
		defer cancel()
	}
	var database, version string
	err = db.QueryRowContext(ctx, "SELECT current_database(), current_setting('server_version')").Scan(&database, &version)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("config: reach database %s:%d: %w", connCfg.Host, connCfg.Port, err)
	}

	lg := logger.Component("postgres")
	lg.Info().
		Str("host", connCfg.Host).
		Str("database", database).
		Str("server_version", version).
		Int("max_open_conns", opts.MaxOpenConns).
		Msg("database ready")
	return db, nil
}
