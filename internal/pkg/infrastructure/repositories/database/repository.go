package database

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/diwise/gas-monitor/internal/pkg/infrastructure/logging"
)

type ConnectorConfig struct {
	URL      string
	Password string
}

type ConnectorFunc func() (*gorm.DB, error)

func NewSQLiteConnector(log zerolog.Logger) ConnectorFunc {
	return func() (*gorm.DB, error) {
		db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
			Logger:          newGormLogger(log),
			CreateBatchSize: 1000,
		})

		if err == nil {
			sqldb, _ := db.DB()
			sqldb.SetMaxOpenConns(1)
		}

		return db, err
	}
}

// NewPostgreSQLConnector returns a connector that retries with exponential backoff until
// the database answers or ctx is cancelled.
func NewPostgreSQLConnector(ctx context.Context, cfg ConnectorConfig) ConnectorFunc {
	log := logging.GetFromContext(ctx)

	return func() (*gorm.DB, error) {
		dsn, err := dsnWithPassword(cfg)
		if err != nil {
			return nil, err
		}

		var db *gorm.DB

		b := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)

		err = backoff.RetryNotify(func() error {
			log.Info().Msg("connecting to database host")

			db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
				Logger: newGormLogger(log),
			})
			return err
		}, b, func(err error, next time.Duration) {
			log.Error().Err(err).Msgf("failed to connect to database, retrying in %s", next.Round(time.Millisecond))
		})

		if err != nil {
			return nil, fmt.Errorf("could not connect to database: %w", err)
		}

		return db, nil
	}
}

// dsnWithPassword injects cfg.Password into a postgres:// URL that lacks one.
// Key/value DSNs get a password=... pair appended.
func dsnWithPassword(cfg ConnectorConfig) (string, error) {
	if cfg.URL == "" {
		return "", fmt.Errorf("no database url configured")
	}

	if cfg.Password == "" {
		return cfg.URL, nil
	}

	if !strings.HasPrefix(cfg.URL, "postgres://") && !strings.HasPrefix(cfg.URL, "postgresql://") {
		return cfg.URL + " password=" + cfg.Password, nil
	}

	u, err := url.Parse(cfg.URL)
	if err != nil {
		return "", fmt.Errorf("invalid database url: %w", err)
	}

	if u.User == nil {
		u.User = url.UserPassword("", cfg.Password)
	} else if _, set := u.User.Password(); !set {
		u.User = url.UserPassword(u.User.Username(), cfg.Password)
	}

	return u.String(), nil
}

func newGormLogger(log zerolog.Logger) logger.Interface {
	return logger.New(
		&logadapter{logger: log},
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// logadapter provides a Printf interface to the gorm logger
// so that we can forward the log data to zerolog
type logadapter struct {
	logger zerolog.Logger
}

func (adapter *logadapter) Printf(format string, args ...interface{}) {
	adapter.logger.Info().Msgf(format, args...)
}
