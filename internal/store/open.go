package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	// database/sql drivers
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"go.uber.org/zap"
)

//go:embed schema.sql
var schemaSQL string

// Options configures a database connection
type Options struct {
	Driver          string
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to a database and verifies the connection
func Open(ctx context.Context, opts Options, logger *zap.Logger) (*SQLStore, error) {
	dialect, err := DialectFor(opts.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(opts.Driver, opts.URL)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", opts.Driver, err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", opts.Driver, ConvertDBError(err))
	}

	return NewSQLStore(db, dialect, DefaultTables(), WithLogger(logger)), nil
}

// Migrate creates the ledger tables if they do not exist
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", ConvertDBError(err))
		}
	}
	s.logger.Info("schema migrated", zap.String("dialect", s.dialect.Name()))
	return nil
}
