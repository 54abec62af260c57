package sqlstore

import (
	"context"
	"database/sql"
	"io/fs"
	"strings"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-paytoken/core"
	"github.com/goliatone/go-paytoken/migrations"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// ConnectionConfig satisfies the go-persistence-bun configuration contract
// for the two supported drivers.
type ConnectionConfig struct {
	Driver         string
	DSN            string
	Debug          bool
	PingTimeout    time.Duration
	OtelIdentifier string
}

func (c ConnectionConfig) GetDebug() bool {
	return c.Debug
}

func (c ConnectionConfig) GetDriver() string {
	return c.Driver
}

func (c ConnectionConfig) GetServer() string {
	return c.DSN
}

func (c ConnectionConfig) GetPingTimeout() time.Duration {
	if c.PingTimeout <= 0 {
		return 5 * time.Second
	}
	return c.PingTimeout
}

func (c ConnectionConfig) GetOtelIdentifier() string {
	if strings.TrimSpace(c.OtelIdentifier) == "" {
		return "go-paytoken"
	}
	return c.OtelIdentifier
}

// Open connects the configured driver, registers the matching migration
// filesystem, and applies pending migrations.
func Open(ctx context.Context, cfg ConnectionConfig) (*persistence.Client, error) {
	driver := strings.TrimSpace(strings.ToLower(cfg.Driver))
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, core.NewBadInputError("sqlstore: connection dsn is required")
	}

	var (
		dialect schema.Dialect
		target  string
	)
	switch driver {
	case DriverPostgres:
		dialect = pgdialect.New()
		target = migrations.DialectPostgres
	case DriverSQLite:
		dialect = sqlitedialect.New()
		target = migrations.DialectSQLite
	default:
		return nil, core.NewBadInputError("sqlstore: unsupported driver " + cfg.Driver)
	}

	sqlDB, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, core.NewInternalError("sqlstore: open " + driver + ": " + err.Error())
	}
	if driver == DriverSQLite {
		// Shared-cache in-memory databases misbehave with concurrent writers.
		sqlDB.SetMaxOpenConns(1)
	}

	client, err := persistence.New(cfg, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, core.NewInternalError("sqlstore: persistence client: " + err.Error())
	}

	_, err = migrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != target {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, migrations.WithValidationTargets(target))
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, core.NewInternalError("sqlstore: migrate: " + err.Error())
	}

	return client, nil
}
