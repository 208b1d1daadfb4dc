package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iota-uz/formsync/modules/catalog/infrastructure/persistence"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate up|down|status",
		Short:     "Apply, revert or report the catalog schema migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, rt, err := setupRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.cleanup()

			db, err := rt.openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := persistence.Migrate(ctx, db.DB, args[0]); err != nil {
				return withCode(exitDBWrite, fmt.Errorf("migrate %s: %w", args[0], err))
			}
			return writeJSONLine(map[string]string{"status": "ok", "direction": args[0]})
		},
	}
}
