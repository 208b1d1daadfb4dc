package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/iota-uz/formsync/modules/catalog/services"
	"github.com/iota-uz/formsync/pkg/composables"
	"github.com/iota-uz/formsync/pkg/configuration"
	"github.com/iota-uz/formsync/pkg/metrics"
)

type reconcileOptions struct {
	dataDir               string
	workbook              string
	sheets                []string
	apply                 bool
	fallback              bool
	createMissingSections bool
	offline               bool
	reportPath            string
	manifestDir           string
	format                string
}

func newReconcileCmd() *cobra.Command {
	var opts reconcileOptions

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile the document folder and workbook into the forms catalog (default is dry-run)",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.offline && opts.apply {
				return withCode(exitUsage, fmt.Errorf("--offline cannot be combined with --apply"))
			}
			opts.sheets = nonEmpty(opts.sheets)
			return validateFormat(opts.format)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, rt, err := setupRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.cleanup()
			opts.withDefaults(cmd, rt.conf)
			return runReconcile(ctx, rt, opts)
		},
	}

	cmd.Flags().StringVar(&opts.dataDir, "data-dir", "", "document folder (default FORMSYNC_DATA_DIR)")
	cmd.Flags().StringVar(&opts.workbook, "workbook", "", "forms workbook, resolved against --data-dir when not found (default FORMSYNC_WORKBOOK)")
	cmd.Flags().StringSliceVar(&opts.sheets, "sheet", nil, "only read these sheets (repeatable)")
	cmd.Flags().BoolVar(&opts.apply, "apply", false, "write to the catalog (default is dry-run)")
	cmd.Flags().BoolVar(&opts.fallback, "fallback", false, "synthesize rows from file names for documents without a workbook row")
	cmd.Flags().BoolVar(&opts.createMissingSections, "create-missing-sections", false, "create sections that cannot be resolved")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "preflight against an empty in-memory catalog (implies dry-run)")
	cmd.Flags().StringVar(&opts.reportPath, "report", "", "write sampled problems as CSV to this path")
	cmd.Flags().StringVar(&opts.manifestDir, "manifest-dir", "", "write the run manifest of an applied run to this directory")
	cmd.Flags().StringVar(&opts.format, "format", formatAuto, "summary format: table or json (default table on a terminal)")
	return cmd
}

// withDefaults fills options not given on the command line from configuration.
func (o *reconcileOptions) withDefaults(cmd *cobra.Command, conf *configuration.Configuration) {
	if o.dataDir == "" {
		o.dataDir = conf.Import.DataDir
	}
	if o.workbook == "" {
		o.workbook = conf.Import.Workbook
	}
	if !cmd.Flags().Changed("fallback") {
		o.fallback = conf.Import.FallbackEnabled
	}
	if !cmd.Flags().Changed("create-missing-sections") {
		o.createMissingSections = conf.Import.CreateMissingSections
	}
}

func runReconcile(ctx context.Context, rt *runtime, opts reconcileOptions) error {
	startedAt := time.Now().UTC()
	runID := uuid.New()
	ctx = composables.WithRunID(ctx, runID)
	workbook := resolveInput(opts.dataDir, opts.workbook)

	index, err := services.ScanDocuments(opts.dataDir, rt.conf.Import.DocumentExt, rt.norm)
	if err != nil {
		return classify(err, exitUsage)
	}
	ingestor := services.NewIngestor(rt.tables, rt.norm, rt.conf.Import.HeaderScanRows)
	ingested, err := ingestor.Ingest(workbook, opts.sheets)
	if err != nil {
		return classify(err, exitUsage)
	}

	store, closeStore, err := rt.openStore(ctx, opts.offline)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := services.NewReconcileService(store, rt.tables, rt.norm, rt.conf.Import.SampleLimit)
	report, runErr := svc.Reconcile(ctx, index, ingested.Rows, services.Policy{
		DryRun:                !opts.apply,
		FallbackEnabled:       opts.fallback,
		CreateMissingSections: opts.createMissingSections,
	})
	if report == nil {
		return classify(runErr, exitDBWrite)
	}
	for _, d := range ingested.Diagnostics {
		report.Add(d.Category, d.Item, d.Detail)
	}

	if opts.reportPath != "" {
		if err := writeProblemsCSV(opts.reportPath, report.Problems()); err != nil {
			return err
		}
	}

	var manifestPath string
	if opts.apply && !report.Aborted && opts.manifestDir != "" {
		manifest := newReconcileManifest(report, opts, workbook, startedAt)
		manifestPath, err = writeManifest(opts.manifestDir, manifest)
		if err != nil {
			return err
		}
	}

	if path := rt.conf.MetricsTextfile; path != "" {
		if err := metrics.WriteTextfile(path); err != nil {
			rt.conf.Logger().WithError(err).Warn("write metrics textfile")
		}
	}

	if err := printReconcileSummary(report, opts, workbook, ingested, manifestPath); err != nil {
		return err
	}
	return classify(runErr, exitDBWrite)
}

type reconcileManifestV1 struct {
	Version    int       `json:"version"`
	RunID      uuid.UUID `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Input      struct {
		DataDir  string   `json:"data_dir"`
		Workbook string   `json:"workbook"`
		Sheets   []string `json:"sheets,omitempty"`
	} `json:"input"`
	Policy struct {
		Fallback              bool `json:"fallback"`
		CreateMissingSections bool `json:"create_missing_sections"`
	} `json:"policy"`
	Created []string          `json:"created"`
	Updated []string          `json:"updated"`
	Changes []services.Change `json:"changes"`
	Summary map[string]int    `json:"summary"`
}

func newReconcileManifest(report *services.Report, opts reconcileOptions, workbook string, startedAt time.Time) *reconcileManifestV1 {
	m := &reconcileManifestV1{
		Version:    1,
		RunID:      report.RunID,
		StartedAt:  startedAt,
		FinishedAt: time.Now().UTC(),
		Created:    report.ChangedCodes(services.CategoryCreated),
		Updated:    report.ChangedCodes(services.CategoryUpdated),
		Changes:    report.Changes,
		Summary:    countsByName(report),
	}
	m.Input.DataDir = opts.dataDir
	m.Input.Workbook = workbook
	m.Input.Sheets = opts.sheets
	m.Policy.Fallback = opts.fallback
	m.Policy.CreateMissingSections = opts.createMissingSections
	if m.Created == nil {
		m.Created = []string{}
	}
	if m.Updated == nil {
		m.Updated = []string{}
	}
	if m.Changes == nil {
		m.Changes = []services.Change{}
	}
	return m
}

func writeManifest(outputDir string, manifest *reconcileManifestV1) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", withCode(exitDB, fmt.Errorf("mkdir %s: %w", outputDir, err))
	}
	ts := manifest.StartedAt.UTC().Format("20060102T150405Z")
	name := fmt.Sprintf("reconcile_manifest_%s_%s.json", ts, manifest.RunID.String())
	path := filepath.Join(outputDir, name)
	if err := writeJSONFile(path, manifest); err != nil {
		return "", err
	}
	return path, nil
}

func countsByName(report *services.Report) map[string]int {
	out := make(map[string]int, len(services.ReportCategories))
	for _, c := range services.ReportCategories {
		out[string(c)] = report.Count(c)
	}
	return out
}

type reconcileSummary struct {
	Status    string           `json:"status"`
	RunID     string           `json:"run_id"`
	Apply     bool             `json:"apply"`
	Offline   bool             `json:"offline"`
	DataDir   string           `json:"data_dir"`
	Workbook  string           `json:"workbook"`
	Sheets    int              `json:"sheets"`
	Rows      int              `json:"rows"`
	Documents int              `json:"documents"`
	Counts    map[string]int   `json:"counts"`
	Truncated []string         `json:"truncated,omitempty"`
	Problems  []services.Issue `json:"problems,omitempty"`
	Report    string           `json:"report,omitempty"`
	Manifest  string           `json:"manifest,omitempty"`
}

func reconcileStatus(report *services.Report) string {
	switch {
	case report.Aborted:
		return "aborted"
	case report.DryRun:
		return "dry_run"
	default:
		return "applied"
	}
}

func printReconcileSummary(report *services.Report, opts reconcileOptions, workbook string, ingested *services.IngestResult, manifestPath string) error {
	s := reconcileSummary{
		Status:    reconcileStatus(report),
		RunID:     report.RunID.String(),
		Apply:     opts.apply,
		Offline:   opts.offline,
		DataDir:   opts.dataDir,
		Workbook:  workbook,
		Sheets:    ingested.Sheets,
		Rows:      len(ingested.Rows),
		Documents: report.Documents(),
		Counts:    countsByName(report),
		Problems:  report.Problems(),
		Report:    opts.reportPath,
		Manifest:  manifestPath,
	}
	for _, c := range services.ReportCategories {
		if report.Truncated(c) {
			s.Truncated = append(s.Truncated, string(c))
		}
	}

	if !useTable(opts.format) {
		return writeJSONLine(s)
	}

	fmt.Fprintf(os.Stdout, "run %s: %s (%d documents, %d rows from %d sheets)\n", s.RunID, s.Status, s.Documents, s.Rows, s.Sheets)
	counts := make([][]string, 0, len(services.ReportCategories))
	for _, c := range services.ReportCategories {
		n := report.Count(c)
		if n == 0 {
			continue
		}
		shown := itoa(n)
		if report.Truncated(c) {
			shown = fmt.Sprintf("%d (%d shown)", n, len(report.Samples[c]))
		}
		counts = append(counts, []string{string(c), shown})
	}
	if err := writeTable(os.Stdout, []string{"category", "count"}, counts); err != nil {
		return err
	}
	if len(s.Problems) == 0 {
		return nil
	}
	problems := make([][]string, 0, len(s.Problems))
	for _, p := range s.Problems {
		problems = append(problems, []string{string(p.Category), p.Item, p.Detail})
	}
	return writeTable(os.Stdout, problemsHeader, problems)
}
