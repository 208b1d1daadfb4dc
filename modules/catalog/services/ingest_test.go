package services

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/iota-uz/formsync/modules/catalog/domain"
)

// sheetRows maps a sheet name to its rows starting at A1.
type sheetRows map[string][][]interface{}

func buildWorkbook(t *testing.T, sheets sheetRows, order ...string) *excelize.File {
	t.Helper()

	wb := excelize.NewFile()
	t.Cleanup(func() { _ = wb.Close() })
	for _, name := range order {
		if _, err := wb.NewSheet(name); err != nil {
			t.Fatalf("NewSheet %s failed: %v", name, err)
		}
		for i, row := range sheets[name] {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			r := row
			if err := wb.SetSheetRow(name, cell, &r); err != nil {
				t.Fatalf("SetSheetRow %s failed: %v", name, err)
			}
		}
	}
	_ = wb.DeleteSheet("Sheet1")
	return wb
}

func saveWorkbook(t *testing.T, wb *excelize.File, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, wb.SaveAs(path))
	return path
}

func sheetIssues(res *IngestResult, sheet string) []Issue {
	var out []Issue
	for _, d := range res.Diagnostics {
		if d.Item == sheet {
			out = append(out, d)
		}
	}
	return out
}

func TestIngestor_ReadsAllSheets(t *testing.T) {
	wb := buildWorkbook(t, sheetRows{
		"Human Resources": {
			{"Forms register"},
			{},
			{"Code", "English Name", "Arabic Name", "Category"},
			{"HR-001", " Leave Request ", "طلب إجازة", "Forms"},
			{"", "blank code row", "", ""},
			{"HR-2", "Overtime", "", ""},
		},
		"Finance": {
			{"Serial", "Name (English)", "Section"},
			{"FI-1", "Expense Claim", "Finanace"},
		},
	}, "Human Resources", "Finance")

	res, err := NewIngestor(DefaultTables(), nil, 0).IngestWorkbook(wb, nil)
	require.NoError(t, err)
	require.Len(t, res.Rows, 3)

	hr := res.Rows[0]
	require.Equal(t, "HR-001", hr.SerialRaw)
	require.Equal(t, "hr-001", hr.SerialKey)
	require.Equal(t, "Leave Request", hr.NamePrimary)
	require.Equal(t, "طلب إجازة", hr.NameSecondary)
	require.Equal(t, "Human Resources", hr.SectionName)
	require.Equal(t, "Human Resources", hr.Sheet)
	require.Equal(t, 4, hr.Line)

	require.Equal(t, "hr-002", res.Rows[1].SerialKey)
	require.Equal(t, "", res.Rows[1].Description)

	fi := res.Rows[2]
	require.Equal(t, "fi-001", fi.SerialKey)
	require.Equal(t, "Finance", fi.SectionName)
	require.Empty(t, sheetIssues(res, "Human Resources"))
	require.Empty(t, sheetIssues(res, "Finance"))
}

func TestIngestor_SkipsSheetWithoutHeader(t *testing.T) {
	wb := buildWorkbook(t, sheetRows{
		"Notes": {{"just some text"}, {"more text"}},
		"HR":    {{"Code", "Category"}, {"HR-1", "Forms"}},
	}, "Notes", "HR")

	res, err := NewIngestor(DefaultTables(), nil, 0).IngestWorkbook(wb, nil)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	require.Equal(t, "Human Resources", res.Rows[0].SectionName)

	issues := sheetIssues(res, "Notes")
	require.Len(t, issues, 1)
	require.Equal(t, CategorySheetSkipped, issues[0].Category)
}

func TestIngestor_SheetFilter(t *testing.T) {
	wb := buildWorkbook(t, sheetRows{
		"Finance": {{"Code"}, {"FI-1"}},
		"Legal":   {{"Code"}, {"LG-1"}},
	}, "Finance", "Legal")
	ing := NewIngestor(DefaultTables(), nil, 0)

	res, err := ing.IngestWorkbook(wb, []string{" legal "})
	require.NoError(t, err)
	require.Equal(t, 1, res.Sheets)
	require.Len(t, res.Rows, 1)
	require.Equal(t, "lg-001", res.Rows[0].SerialKey)

	_, err = ing.IngestWorkbook(wb, []string{"Nope"})
	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestIngestor_LastRowWins(t *testing.T) {
	wb := buildWorkbook(t, sheetRows{
		"A": {{"Code", "English Name"}, {"HR-1", "First"}},
		"B": {{"Code", "English Name"}, {"hr_001", "Second"}},
	}, "A", "B")

	res, err := NewIngestor(DefaultTables(), nil, 0).IngestWorkbook(wb, nil)
	require.NoError(t, err)
	idx := res.Index()
	require.Len(t, idx, 1)
	require.Equal(t, "Second", idx["hr-001"].NamePrimary)
}

func TestIngestor_OpensWorkbookFromDisk(t *testing.T) {
	wb := buildWorkbook(t, sheetRows{"Forms": {{"Code"}, {"QA-3"}}}, "Forms")
	path := saveWorkbook(t, wb, "forms.xlsx")

	res, err := NewIngestor(DefaultTables(), nil, 0).Ingest(path, nil)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)

	_, err = NewIngestor(DefaultTables(), nil, 0).Ingest(filepath.Join(t.TempDir(), "missing.xlsx"), nil)
	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}
