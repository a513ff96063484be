// Package storage opens the backing database for the agent store and applies
// the bundled schema migrations, so hosts get a ready persistence client from
// a driver name and a DSN.
package storage

import (
	"context"
	"database/sql"
	"io/fs"
	"strings"
	"time"

	"github.com/daily-harvest/dh-shop-agent/core"
	"github.com/daily-harvest/dh-shop-agent/migrations"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"

	defaultPingTimeout    = 5 * time.Second
	defaultOtelIdentifier = "dh-shop-agent"
)

// Config carries the connection settings for the agent store database.
// Driver accepts postgres (pg, postgresql) and sqlite (sqlite3) spellings.
type Config struct {
	Driver         string
	DSN            string
	Debug          bool
	PingTimeout    time.Duration
	OtelIdentifier string
}

func (c Config) GetDebug() bool {
	return c.Debug
}

func (c Config) GetDriver() string {
	driver, _, err := normalizeDriver(c.Driver)
	if err != nil {
		return strings.TrimSpace(strings.ToLower(c.Driver))
	}
	return driver
}

func (c Config) GetServer() string {
	return c.DSN
}

func (c Config) GetPingTimeout() time.Duration {
	if c.PingTimeout <= 0 {
		return defaultPingTimeout
	}
	return c.PingTimeout
}

func (c Config) GetOtelIdentifier() string {
	if strings.TrimSpace(c.OtelIdentifier) == "" {
		return defaultOtelIdentifier
	}
	return c.OtelIdentifier
}

// Open connects to the configured database, registers the agent migrations
// for the matching dialect, and migrates the schema. The caller owns the
// returned client and closes it when done.
func Open(ctx context.Context, cfg Config) (*persistence.Client, error) {
	driver, target, err := normalizeDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, core.NewBadInputError("storage: dsn is required")
	}

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, core.NewStorageFaultError("storage: open database failed", err)
	}
	if driver == DriverSQLite && strings.Contains(cfg.DSN, "mode=memory") {
		// A shared-cache memory database drops its schema when the last
		// connection closes, so the pool must stay at one.
		db.SetMaxOpenConns(1)
	}

	client, err := persistence.New(cfg, db, dialectFor(driver))
	if err != nil {
		_ = db.Close()
		return nil, core.NewStorageFaultError("storage: build persistence client failed", err)
	}

	if _, err := migrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != target {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, migrations.WithValidationTargets(target)); err != nil {
		_ = client.Close()
		return nil, err
	}

	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, core.NewStorageFaultError("storage: apply migrations failed", err)
	}

	return client, nil
}

func normalizeDriver(raw string) (driver string, migrationTarget string, err error) {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "postgres", "postgresql", "pg":
		return DriverPostgres, migrations.DialectPostgres, nil
	case "sqlite", "sqlite3":
		return DriverSQLite, migrations.DialectSQLite, nil
	case "":
		return "", "", core.NewBadInputError("storage: driver is required")
	default:
		return "", "", core.NewBadInputError("storage: unsupported driver " + strings.TrimSpace(raw))
	}
}

func dialectFor(driver string) schema.Dialect {
	if driver == DriverPostgres {
		return pgdialect.New()
	}
	return sqlitedialect.New()
}
