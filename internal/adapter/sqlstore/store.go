// Package sqlstore persists per-channel watermarks, the latest timestamp
// produced for each param key, in a SQL table read by the tile server.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"regexp"
	"time"

	"github.com/couchcryptid/radar-accumulation-service/internal/config"
	"github.com/couchcryptid/radar-accumulation-service/internal/domain"
	"github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

const (
	defaultMySQLPort = "3306"
	pingAttempts     = 5
	initialBackoff   = 200 * time.Millisecond
	maxBackoff       = 5 * time.Second
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// DSN returns the driver data source name for cfg. An explicit WATERMARK_DSN
// wins; otherwise a MySQL DSN is assembled from the DB_* settings.
func DSN(cfg *config.Config) (string, error) {
	if cfg.WatermarkDSN != "" {
		return cfg.WatermarkDSN, nil
	}
	if cfg.WatermarkDriver != config.WatermarkMySQL {
		return "", fmt.Errorf("driver %s requires WATERMARK_DSN", cfg.WatermarkDriver)
	}

	addr := cfg.DBHost
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, defaultMySQLPort)
	}
	mc := mysql.NewConfig()
	mc.User = cfg.DBUser
	mc.Passwd = cfg.DBPassword
	mc.Net = "tcp"
	mc.Addr = addr
	mc.DBName = cfg.DBName
	mc.Timeout = 5 * time.Second
	return mc.FormatDSN(), nil
}

// Open connects to the watermark database and waits until it answers a ping.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sql.DB, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(cfg.WatermarkDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open watermark database: %w", err)
	}
	if err := waitReady(ctx, db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func waitReady(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	backoff := initialBackoff
	var err error
	for attempt := 1; attempt <= pingAttempts; attempt++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		if attempt == pingAttempts {
			break
		}
		logger.Warn("watermark database not ready, retrying",
			"attempt", attempt, "backoff", backoff, "error", err)
		if !sleepWithContext(ctx, backoff) {
			return ctx.Err()
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}
	return fmt.Errorf("ping watermark database: %w", err)
}

func nextBackoff(current, limit time.Duration) time.Duration {
	next := current * 2
	if next > limit {
		return limit
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Store implements pipeline.WatermarkStore on a two-column table keyed by
// param key ("nom") holding the JSON tile timestamp ("donnees").
type Store struct {
	db    *sql.DB
	table string
}

// New wraps db. The table name is interpolated into statements and must be a
// plain or schema-qualified identifier.
func New(db *sql.DB, table string) (*Store, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid watermark table name %q", table)
	}
	return &Store{db: db, table: table}, nil
}

// EnsureSchema creates the watermark table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  nom VARCHAR(255) NOT NULL PRIMARY KEY,
  donnees TEXT NOT NULL
)`, s.table)
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("create watermark table: %w", err)
	}
	return nil
}

// RecordLast upserts the watermark of paramKey. REPLACE is understood by both
// MySQL and SQLite.
func (s *Store) RecordLast(ctx context.Context, paramKey string, ts time.Time) error {
	payload, err := domain.MarshalTileTimestamp(ts)
	if err != nil {
		return fmt.Errorf("encode watermark: %w", err)
	}
	q := fmt.Sprintf("REPLACE INTO %s (nom, donnees) VALUES (?, ?)", s.table)
	if _, err := s.db.ExecContext(ctx, q, paramKey, string(payload)); err != nil {
		return fmt.Errorf("upsert watermark: %w", err)
	}
	return nil
}

// Last returns the watermark of paramKey. ok is false when none is recorded.
func (s *Store) Last(ctx context.Context, paramKey string) (ts time.Time, ok bool, err error) {
	q := fmt.Sprintf("SELECT donnees FROM %s WHERE nom = ?", s.table)
	var payload string
	if err := s.db.QueryRowContext(ctx, q, paramKey).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("query watermark: %w", err)
	}
	ts, err = domain.ParseTileTimestamp([]byte(payload))
	if err != nil {
		return time.Time{}, false, err
	}
	return ts, true, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
