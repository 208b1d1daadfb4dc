package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/iota-uz/formsync/modules/catalog/services"
	"github.com/iota-uz/formsync/pkg/configuration"
)

func newTestRuntime(t *testing.T) *runtime {
	t.Helper()
	dir := t.TempDir()
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(origWd) })
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Setenv("UPLOADS_PATH", filepath.Join(dir, "media"))

	conf, err := configuration.Load([]string{".env"})
	if err != nil {
		t.Fatalf("load configuration: %v", err)
	}
	t.Cleanup(conf.Unload)
	return &runtime{
		conf:    conf,
		tables:  services.DefaultTables(),
		norm:    services.NewCodeNormalizer(conf.Import.DocumentExt),
		cleanup: func() {},
	}
}

func writeFormsWorkbook(t *testing.T, path string, rows [][]any) {
	t.Helper()
	wb := excelize.NewFile()
	defer wb.Close()
	if _, err := wb.NewSheet("Human Resources"); err != nil {
		t.Fatalf("NewSheet: %v", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		r := row
		if err := wb.SetSheetRow("Human Resources", cell, &r); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	_ = wb.DeleteSheet("Sheet1")
	if err := wb.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
}

func writeDocs(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("%PDF-1.4\n"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return records
}

func TestRunReconcile_OfflinePreflight(t *testing.T) {
	rt := newTestRuntime(t)
	dataDir := t.TempDir()
	writeDocs(t, dataDir, "HR-001.pdf", "HR 7.pdf", ".pdf")
	writeFormsWorkbook(t, filepath.Join(dataDir, "forms.xlsx"), [][]any{
		{"Forms register"},
		{},
		{"Code", "English Name", "Arabic Name"},
		{"HR-001", "Leave request", "طلب إجازة"},
		{"HR-002", "Overtime", "عمل إضافي"},
	})
	reportPath := filepath.Join(t.TempDir(), "problems.csv")

	err := runReconcile(context.Background(), rt, reconcileOptions{
		dataDir:               dataDir,
		workbook:              "forms.xlsx",
		offline:               true,
		createMissingSections: true,
		reportPath:            reportPath,
		format:                formatJSON,
	})
	if err != nil {
		t.Fatalf("runReconcile: %v", err)
	}

	records := readCSV(t, reportPath)
	if strings.Join(records[0], ",") != "category,item,detail" {
		t.Fatalf("unexpected header: %v", records[0])
	}
	got := map[string]string{}
	for _, rec := range records[1:] {
		got[rec[1]] = rec[0]
	}
	if got["HR 7.pdf"] != string(services.CategoryNoRow) {
		t.Fatalf("expected HR 7.pdf to be skipped_no_row, got %q", got["HR 7.pdf"])
	}
	if got[".pdf"] != string(services.CategoryBadCode) {
		t.Fatalf("expected .pdf to be skipped_bad_code, got %q", got[".pdf"])
	}
	if got["HR-002"] != string(services.CategoryNoDocument) {
		t.Fatalf("expected HR-002 to be skipped_no_document, got %q", got["HR-002"])
	}
	if _, ok := got["HR-001.pdf"]; ok {
		t.Fatalf("expected HR-001.pdf to reconcile without problems")
	}
	if len(records) != 4 {
		t.Fatalf("expected 3 problems, got %d: %v", len(records)-1, records[1:])
	}
	if entries, _ := os.ReadDir(rt.conf.UploadsPath); len(entries) != 0 {
		t.Fatalf("expected no attachments written in a dry run")
	}
}

func TestRunReconcile_MissingDataDir(t *testing.T) {
	rt := newTestRuntime(t)

	err := runReconcile(context.Background(), rt, reconcileOptions{
		dataDir:  filepath.Join(t.TempDir(), "missing"),
		workbook: "forms.xlsx",
		offline:  true,
		format:   formatJSON,
	})
	if got := exitCode(err); got != exitUsage {
		t.Fatalf("expected exit code %d, got %d (%v)", exitUsage, got, err)
	}
}

func TestRunReconcile_MissingWorkbook(t *testing.T) {
	rt := newTestRuntime(t)
	dataDir := t.TempDir()
	writeDocs(t, dataDir, "HR-001.pdf")

	err := runReconcile(context.Background(), rt, reconcileOptions{
		dataDir:  dataDir,
		workbook: "forms.xlsx",
		offline:  true,
		format:   formatJSON,
	})
	if got := exitCode(err); got != exitUsage {
		t.Fatalf("expected exit code %d, got %d (%v)", exitUsage, got, err)
	}
}

func TestWriteManifest(t *testing.T) {
	report := services.NewReport(uuid.MustParse("11111111-1111-1111-1111-111111111111"), false, 10)
	startedAt := time.Date(2025, 3, 1, 8, 30, 0, 0, time.UTC)
	m := newReconcileManifest(report, reconcileOptions{dataDir: "data", fallback: true}, "data/forms.xlsx", startedAt)

	dir := t.TempDir()
	path, err := writeManifest(dir, m)
	if err != nil {
		t.Fatalf("writeManifest: %v", err)
	}
	want := filepath.Join(dir, "reconcile_manifest_20250301T083000Z_11111111-1111-1111-1111-111111111111.json")
	if path != want {
		t.Fatalf("unexpected manifest path: %s", path)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if decoded["version"] != float64(1) {
		t.Fatalf("unexpected version: %v", decoded["version"])
	}
	if created, ok := decoded["created"].([]any); !ok || len(created) != 0 {
		t.Fatalf("expected empty created list, got %v", decoded["created"])
	}
	if policy := decoded["policy"].(map[string]any); policy["fallback"] != true {
		t.Fatalf("expected fallback policy recorded, got %v", policy)
	}
}

func TestResolveInput(t *testing.T) {
	dir := t.TempDir()
	if got := resolveInput(dir, "forms.xlsx"); got != filepath.Join(dir, "forms.xlsx") {
		t.Fatalf("unexpected path: %s", got)
	}
	abs := filepath.Join(dir, "other.xlsx")
	if got := resolveInput("data", abs); got != abs {
		t.Fatalf("unexpected path: %s", got)
	}
}
