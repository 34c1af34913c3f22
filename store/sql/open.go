package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-shopify-fulfillment/core"
	"github.com/goliatone/go-shopify-fulfillment/migrations"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

const defaultPingTimeout = 5 * time.Second

type persistenceConfig struct {
	driver string
	server string
	debug  bool
}

func (c persistenceConfig) GetDebug() bool {
	return c.debug
}

func (c persistenceConfig) GetDriver() string {
	return c.driver
}

func (c persistenceConfig) GetServer() string {
	return c.server
}

func (c persistenceConfig) GetPingTimeout() time.Duration {
	return defaultPingTimeout
}

func (c persistenceConfig) GetOtelIdentifier() string {
	return "shopify-sessions"
}

type openOptions struct {
	migrations fs.FS
}

type OpenOption func(*openOptions)

// WithMigrations replaces the embedded migration tree.
func WithMigrations(fsys fs.FS) OpenOption {
	return func(o *openOptions) {
		if fsys != nil {
			o.migrations = fsys
		}
	}
}

// Open connects to the session database, registers the dialect migrations and
// applies them. The caller owns the returned client and must Close it.
func Open(ctx context.Context, cfg core.SessionStorageConfig, opts ...OpenOption) (*persistence.Client, error) {
	options := openOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	dialectName, err := migrations.DialectForDriver(cfg.Driver)
	if err != nil {
		return nil, openError(err, "sqlstore: resolve dialect", cfg)
	}
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, openError(fmt.Errorf("sqlstore: dsn is required"), "sqlstore: open session storage", cfg)
	}

	driverName, dialect := driverFor(dialectName)
	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, openError(err, "sqlstore: open session storage", cfg)
	}
	if dialectName == migrations.DialectSQLite {
		sqlDB.SetMaxOpenConns(1)
	}

	client, err := persistence.New(persistenceConfig{
		driver: driverName,
		server: dsn,
		debug:  cfg.Debug,
	}, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, openError(err, "sqlstore: create persistence client", cfg)
	}

	_, err = migrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != dialectName {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, migrations.WithValidationTargets(dialectName), migrations.WithRoot(options.migrations))
	if err != nil {
		_ = client.Close()
		return nil, openError(err, "sqlstore: register migrations", cfg)
	}

	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, openError(err, "sqlstore: migrate session storage", cfg)
	}
	return client, nil
}

func driverFor(dialect string) (string, schema.Dialect) {
	if dialect == migrations.DialectPostgres {
		return "postgres", pgdialect.New()
	}
	return "sqlite3", sqlitedialect.New()
}

func openError(source error, message string, cfg core.SessionStorageConfig) error {
	return core.WrapError(
		source,
		goerrors.CategoryInternal,
		message,
		http.StatusInternalServerError,
		core.ErrorStorageFailed,
		map[string]any{"driver": cfg.Driver},
	)
}
