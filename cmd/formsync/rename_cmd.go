package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iota-uz/formsync/modules/catalog/services"
)

type renameOptions struct {
	folder     string
	workbook   string
	apply      bool
	reportPath string
	format     string
}

func newRenameCmd() *cobra.Command {
	var opts renameOptions

	cmd := &cobra.Command{
		Use:   "rename",
		Short: "Rename documents to their workbook code (default is dry-run)",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if trimSpace(opts.reportPath) == "" {
				return withCode(exitUsage, fmt.Errorf("--report is required"))
			}
			return validateFormat(opts.format)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, rt, err := setupRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.cleanup()
			if opts.folder == "" {
				opts.folder = rt.conf.Import.DataDir
			}
			if opts.workbook == "" {
				opts.workbook = rt.conf.Import.Workbook
			}
			return runRename(ctx, rt, opts)
		},
	}

	cmd.Flags().StringVar(&opts.folder, "folder", "", "document folder (default FORMSYNC_DATA_DIR)")
	cmd.Flags().StringVar(&opts.workbook, "workbook", "", "forms workbook, resolved against --folder when not found (default FORMSYNC_WORKBOOK)")
	cmd.Flags().BoolVar(&opts.apply, "apply", false, "rename the files (default is dry-run)")
	cmd.Flags().StringVar(&opts.reportPath, "report", "rename_report.csv", "rename report CSV path")
	cmd.Flags().StringVar(&opts.format, "format", formatAuto, "summary format: table or json (default table on a terminal)")
	return cmd
}

type renameSummary struct {
	Status        string           `json:"status"`
	Apply         bool             `json:"apply"`
	Folder        string           `json:"folder"`
	Workbook      string           `json:"workbook"`
	Rows          int              `json:"rows"`
	Counts        map[string]int   `json:"counts"`
	SkippedSheets []services.Issue `json:"skipped_sheets,omitempty"`
	Report        string           `json:"report"`
}

func runRename(ctx context.Context, rt *runtime, opts renameOptions) error {
	workbook := resolveInput(opts.folder, opts.workbook)

	docs, err := services.ListDocuments(opts.folder, rt.conf.Import.DocumentExt, rt.norm)
	if err != nil {
		return classify(err, exitUsage)
	}
	ingestor := services.NewIngestor(rt.tables, rt.norm, rt.conf.Import.HeaderScanRows)
	ingested, err := ingestor.Ingest(workbook, nil)
	if err != nil {
		return classify(err, exitUsage)
	}

	planner := services.NewRenamePlanner(rt.norm, rt.conf.Import.DocumentExt)
	plans := planner.PlanRenames(docs, services.NewRenameIndex(ingested.Rows, rt.norm))
	status := "planned"
	if opts.apply {
		plans = planner.ApplyRenames(ctx, plans)
		status = "applied"
	}

	if err := writeRenameCSV(opts.reportPath, plans); err != nil {
		return err
	}

	s := newRenameSummary(status, opts, workbook, ingested, plans)
	if err := printRenameSummary(s, opts.format); err != nil {
		return err
	}

	if n := s.Counts[string(services.RenameFailed)]; n > 0 {
		return withCode(exitPartial, fmt.Errorf("%d renames failed, see %s", n, opts.reportPath))
	}
	return nil
}

func newRenameSummary(status string, opts renameOptions, workbook string, ingested *services.IngestResult, plans []services.RenamePlan) renameSummary {
	s := renameSummary{
		Status:   status,
		Apply:    opts.apply,
		Folder:   opts.folder,
		Workbook: workbook,
		Rows:     len(ingested.Rows),
		Counts:   map[string]int{},
		Report:   opts.reportPath,
	}
	for st, n := range services.RenameCounts(plans) {
		s.Counts[string(st)] = n
	}
	for _, d := range ingested.Diagnostics {
		if d.Category == services.CategorySheetSkipped {
			s.SkippedSheets = append(s.SkippedSheets, d)
		}
	}
	return s
}

var renameStatusOrder = []services.RenameStatus{
	services.RenamePlanned,
	services.RenameRenamed,
	services.RenameFailed,
	services.RenameSkipped,
	services.RenameUnmatched,
}

func printRenameSummary(s renameSummary, format string) error {
	if !useTable(format) {
		return writeJSONLine(s)
	}
	fmt.Fprintf(os.Stdout, "rename %s: report written to %s\n", s.Status, s.Report)
	rows := make([][]string, 0, len(renameStatusOrder))
	for _, st := range renameStatusOrder {
		if n := s.Counts[string(st)]; n > 0 {
			rows = append(rows, []string{string(st), itoa(n)})
		}
	}
	if err := writeTable(os.Stdout, []string{"status", "count"}, rows); err != nil {
		return err
	}
	if len(s.SkippedSheets) == 0 {
		return nil
	}
	sheets := make([][]string, 0, len(s.SkippedSheets))
	for _, d := range s.SkippedSheets {
		sheets = append(sheets, []string{d.Item, d.Detail})
	}
	return writeTable(os.Stdout, []string{"skipped sheet", "reason"}, sheets)
}
