package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iota-uz/formsync/modules/catalog/services"
)

func newSectionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sections",
		Short: "Catalog section maintenance",
	}
	cmd.AddCommand(newSectionsImportCmd())
	return cmd
}

type sectionsImportOptions struct {
	workbook string
	apply    bool
	offline  bool
}

func newSectionsImportCmd() *cobra.Command {
	var opts sectionsImportOptions

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Create catalog sections listed in a bilingual workbook (default is dry-run)",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if trimSpace(opts.workbook) == "" {
				return withCode(exitUsage, fmt.Errorf("--workbook is required"))
			}
			if opts.offline && opts.apply {
				return withCode(exitUsage, fmt.Errorf("--offline cannot be combined with --apply"))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, rt, err := setupRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.cleanup()
			return runSectionsImport(ctx, rt, opts)
		},
	}

	cmd.Flags().StringVar(&opts.workbook, "workbook", "", "sections workbook")
	cmd.Flags().BoolVar(&opts.apply, "apply", false, "create the sections (default is dry-run)")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "check the workbook against an empty in-memory catalog")
	return cmd
}

type sectionsImportSummary struct {
	Status   string `json:"status"`
	Workbook string `json:"workbook"`
	Rows     int    `json:"rows"`
	*services.SectionImportResult
}

func runSectionsImport(ctx context.Context, rt *runtime, opts sectionsImportOptions) error {
	headers := services.NewHeaderResolver(rt.tables.Headers, rt.conf.Import.HeaderScanRows)
	rows, err := services.ReadSectionRows(opts.workbook, headers)
	if err != nil {
		return classify(err, exitUsage)
	}

	store, closeStore, err := rt.openStore(ctx, opts.offline)
	if err != nil {
		return err
	}
	defer closeStore()

	res, err := services.NewSectionImportService(store).Import(ctx, rows, !opts.apply)
	if err != nil {
		return classify(err, exitDBWrite)
	}
	status := "dry_run"
	if opts.apply {
		status = "applied"
	}
	return writeJSONLine(sectionsImportSummary{
		Status:              status,
		Workbook:            opts.workbook,
		Rows:                len(rows),
		SectionImportResult: res,
	})
}
