// Package postgres reads store snapshots from and writes aliases to Postgres.
package postgres

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type ConnConfig struct {
	DSN          string
	MaxOpenConns int
	Attempts     int // ping attempts before giving up
}

// Open connects and pings with a bounded retry so a database that is
// still starting does not fail the run outright.
func Open(ctx context.Context, cfg ConnConfig, logger zerolog.Logger) (*sqlx.DB, error) {
	if cfg.DSN == "" {
		return nil, errors.New("DATABASE_URL is empty")
	}
	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = 1
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second

	try := 0
	err = backoff.Retry(func() error {
		try++
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		perr := db.PingContext(pctx)
		if perr != nil {
			logger.Warn().Err(perr).Int("attempt", try).Msg("postgres ping failed")
		}
		return perr
	}, backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx))
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "ping postgres after %d attempts", try)
	}
	return db, nil
}
