// Package store persists users and usage logs through gorm. DATABASE_URL
// values starting with postgres:// or postgresql:// are served by a pgx pool;
// anything else is treated as a SQLite file path.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Skufu/healthrec/internal/logging"
	"github.com/Skufu/healthrec/internal/models"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateUsername = errors.New("username already exists")
)

type Store struct {
	db    *gorm.DB
	sqlDB *sql.DB
	pool  *pgxpool.Pool
}

// Open connects to url and verifies the connection. At most one Options
// value is honoured.
func Open(ctx context.Context, url string, opts ...Options) (*Store, error) {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	if url == "" {
		return nil, errors.New("database url is empty")
	}

	cfg := &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(gormWriter{}, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	}

	if isPostgresURL(url) {
		pool, err := connectPool(ctx, url, o)
		if err != nil {
			return nil, err
		}
		sqlDB := stdlib.OpenDBFromPool(pool)
		db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), cfg)
		if err != nil {
			_ = sqlDB.Close()
			pool.Close()
			return nil, fmt.Errorf("open gorm postgres: %w", err)
		}
		return &Store{db: db, sqlDB: sqlDB, pool: pool}, nil
	}

	db, err := gorm.Open(sqlite.Open(sqliteDSN(url)), cfg)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", url, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	// SQLite allows a single writer.
	sqlDB.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, o.connectTimeout())
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &Store{db: db, sqlDB: sqlDB}, nil
}

// Migrate creates or updates every table.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s.pool != nil {
		return s.pool.Ping(ctx)
	}
	return s.sqlDB.PingContext(ctx)
}

func (s *Store) Close() {
	if err := s.sqlDB.Close(); err != nil {
		logging.Warn().Err(err).Msg("close database handle")
	}
	if s.pool != nil {
		s.pool.Close()
	}
}

// DB exposes the underlying gorm handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func isPostgresURL(url string) bool {
	return strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://")
}

func sqliteDSN(path string) string {
	path = strings.TrimPrefix(path, "sqlite://")
	if path == ":memory:" || strings.Contains(path, "?") {
		return path
	}
	return path + "?_pragma=busy_timeout(5000)"
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey),
		strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return ErrDuplicateUsername
	default:
		return err
	}
}

type gormWriter struct{}

func (gormWriter) Printf(format string, args ...interface{}) {
	logging.Warn().Str("component", "gorm").Msgf(format, args...)
}
