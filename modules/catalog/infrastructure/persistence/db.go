package persistence

import (
	"context"
	"database/sql"
	"embed"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	// database/sql drivers selectable through DB_DRIVER.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"

	"github.com/iota-uz/formsync/modules/catalog/domain"
	"github.com/iota-uz/formsync/pkg/configuration"
)

//go:embed migrations/*.sql
var MigrationFiles embed.FS

const migrationsDir = "migrations"

// Open connects to the catalog database and verifies the connection.
func Open(ctx context.Context, opts configuration.DatabaseOptions, timeout time.Duration) (*sqlx.DB, error) {
	db, err := sqlx.Open(opts.Driver, opts.ConnectionString())
	if err != nil {
		return nil, errors.Wrapf(err, "open %s database", opts.Driver)
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "db connect failed")
	}
	return db, nil
}

// CheckSchema fails with a ConfigurationError when the catalog tables are missing.
func CheckSchema(ctx context.Context, db *sqlx.DB) error {
	for _, table := range []string{"catalog_sections", "catalog_entries"} {
		var ok bool
		if err := db.GetContext(ctx, &ok, `SELECT to_regclass($1) IS NOT NULL`, "public."+table); err != nil {
			return errors.Wrapf(err, "check %s table", table)
		}
		if !ok {
			return domain.NewConfigurationError("database", table+" table is missing; run `formsync migrate up`", nil)
		}
	}
	return nil
}

// Migrate applies ("up"), reverts one step of ("down") or reports ("status") the
// embedded catalog migrations.
func Migrate(ctx context.Context, db *sql.DB, direction string) error {
	goose.SetBaseFS(MigrationFiles)
	defer goose.SetBaseFS(nil)
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Wrap(err, "set goose dialect")
	}

	switch direction {
	case "up":
		return errors.Wrap(goose.UpContext(ctx, db, migrationsDir), "migrate up")
	case "down":
		return errors.Wrap(goose.DownContext(ctx, db, migrationsDir), "migrate down")
	case "status":
		return errors.Wrap(goose.StatusContext(ctx, db, migrationsDir), "migrate status")
	default:
		return errors.Errorf("unknown migration direction %q", direction)
	}
}
