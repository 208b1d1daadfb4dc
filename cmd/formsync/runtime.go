package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/iota-uz/utils/fs"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/formsync/modules/catalog/domain"
	"github.com/iota-uz/formsync/modules/catalog/infrastructure/persistence"
	"github.com/iota-uz/formsync/modules/catalog/services"
	"github.com/iota-uz/formsync/pkg/composables"
	"github.com/iota-uz/formsync/pkg/configuration"
	"github.com/iota-uz/formsync/pkg/logging"
)

// loadConfig is swapped in tests to avoid the process-wide singleton.
var loadConfig = configuration.Use

type runtime struct {
	conf    *configuration.Configuration
	tables  services.Tables
	norm    *services.CodeNormalizer
	cleanup func()
}

// setupRuntime loads configuration and lookup tables, enables tracing when
// configured and returns a context carrying the process logger.
func setupRuntime(ctx context.Context) (context.Context, *runtime, error) {
	conf, err := loadConfig()
	if err != nil {
		return ctx, nil, withCode(exitUsage, fmt.Errorf("load configuration: %w", err))
	}
	rt := &runtime{conf: conf, cleanup: func() {}}

	tables, err := services.LoadTables(conf.Import.TablesPath)
	if err != nil {
		return ctx, nil, classify(err, exitUsage)
	}
	rt.tables = tables
	rt.norm = services.NewCodeNormalizer(conf.Import.DocumentExt)

	if conf.OpenTelemetry.Enabled {
		rt.cleanup = logging.SetupTracing(ctx, conf.OpenTelemetry.ServiceName, conf.OpenTelemetry.TempoURL)
		conf.Logger().Info("OpenTelemetry tracing enabled, exporting to Tempo at " + conf.OpenTelemetry.TempoURL)
	}

	ctx = composables.WithLogger(ctx, logrus.NewEntry(conf.Logger()))
	return ctx, rt, nil
}

func (rt *runtime) attachments() *persistence.FSStorage {
	return persistence.NewFSStorage(rt.conf.UploadsPath, rt.conf.Import.UploadDir)
}

// openStore returns the catalog store. Offline runs use an empty in-memory
// store; otherwise the database is connected and its schema checked.
func (rt *runtime) openStore(ctx context.Context, offline bool) (domain.Store, func(), error) {
	if offline {
		return persistence.NewMemoryStore().Store(rt.attachments()), func() {}, nil
	}
	db, err := rt.openDB(ctx)
	if err != nil {
		return domain.Store{}, nil, err
	}
	if err := persistence.CheckSchema(ctx, db); err != nil {
		_ = db.Close()
		return domain.Store{}, nil, classify(err, exitDB)
	}
	return persistence.NewStore(db, rt.attachments()), func() { _ = db.Close() }, nil
}

func (rt *runtime) openDB(ctx context.Context) (*sqlx.DB, error) {
	db, err := persistence.Open(ctx, rt.conf.Database, rt.conf.ConnectTimeout)
	if err != nil {
		return nil, withCode(exitDB, err)
	}
	return db, nil
}

// resolveInput returns name as given when it exists, otherwise relative to dir.
func resolveInput(dir, name string) string {
	if name == "" || filepath.IsAbs(name) || fs.FileExists(name) {
		return name
	}
	return filepath.Join(dir, name)
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = trimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
