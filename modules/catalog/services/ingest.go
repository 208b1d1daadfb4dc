package services

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/xuri/excelize/v2"

	"github.com/iota-uz/formsync/modules/catalog/domain"
)

// IngestResult is the projection of a workbook onto source rows.
type IngestResult struct {
	Rows        []domain.SourceRow
	Diagnostics []Issue
	Sheets      int
}

// Index keys rows by normalized serial; later rows overwrite earlier ones.
func (r *IngestResult) Index() map[string]domain.SourceRow {
	return IndexRows(r.Rows)
}

func IndexRows(rows []domain.SourceRow) map[string]domain.SourceRow {
	index := make(map[string]domain.SourceRow, len(rows))
	for _, row := range rows {
		if row.SerialKey == "" {
			continue
		}
		index[row.SerialKey] = row
	}
	return index
}

// Ingestor reads every sheet of a workbook into source rows.
type Ingestor struct {
	headers    *HeaderResolver
	normalizer *CodeNormalizer
	aliases    *AliasTable
}

func NewIngestor(tables Tables, normalizer *CodeNormalizer, scanRows int) *Ingestor {
	if normalizer == nil {
		normalizer = defaultNormalizer
	}
	return &Ingestor{
		headers:    NewHeaderResolver(tables.Headers, scanRows),
		normalizer: normalizer,
		aliases:    NewAliasTable(tables.SectionAliases),
	}
}

// Headers exposes the resolver the ingestor locates header rows with.
func (i *Ingestor) Headers() *HeaderResolver {
	return i.headers
}

// Ingest opens the workbook at path. sheets optionally restricts the sheets read,
// compared case-insensitively.
func (i *Ingestor) Ingest(path string, sheets []string) (*IngestResult, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, domain.NewConfigurationError("workbook", "cannot open "+path, err)
	}
	defer f.Close()
	return i.IngestWorkbook(f, sheets)
}

func (i *Ingestor) IngestWorkbook(f *excelize.File, sheets []string) (*IngestResult, error) {
	res := &IngestResult{}
	selected := sheetFilter(sheets)

	for _, sheet := range f.GetSheetList() {
		if selected != nil && !selected[strings.ToLower(strings.TrimSpace(sheet))] {
			continue
		}
		res.Sheets++

		rows, err := f.GetRows(sheet)
		if err != nil {
			res.Diagnostics = append(res.Diagnostics, Issue{
				Category: CategorySheetSkipped,
				Item:     sheet,
				Detail:   fmt.Sprintf("cannot read sheet: %v", err),
			})
			continue
		}
		match, err := i.headers.LocateHeaderRow(rows)
		if errors.Is(err, ErrNoHeaderRow) {
			res.Diagnostics = append(res.Diagnostics, Issue{
				Category: CategorySheetSkipped,
				Item:     sheet,
				Detail:   fmt.Sprintf("no header row within the first %d rows", i.headers.scanRows),
			})
			continue
		}
		if err != nil {
			return nil, err
		}
		if _, ok := match.Columns[HeaderSerial]; !ok {
			res.Diagnostics = append(res.Diagnostics, Issue{
				Category: CategorySheetSkipped,
				Item:     sheet,
				Detail:   fmt.Sprintf("header row %d has no code column", match.Row+1),
			})
			continue
		}

		sheetSection := i.aliases.Correct(sheet)
		for n := match.Row + 1; n < len(rows); n++ {
			row, ok := i.sourceRow(rows[n], match.Columns, sheetSection)
			if !ok {
				continue
			}
			row.Sheet = sheet
			row.Line = n + 1
			res.Rows = append(res.Rows, row)
		}
	}

	if selected != nil && res.Sheets == 0 {
		return nil, domain.NewConfigurationError("sheet", "no sheet matches "+strings.Join(sheets, ", "), nil)
	}
	return res, nil
}

func (i *Ingestor) sourceRow(cells []string, columns map[HeaderField]int, sheetSection string) (domain.SourceRow, bool) {
	cell := func(f HeaderField) string {
		idx, ok := columns[f]
		if !ok || idx >= len(cells) {
			return ""
		}
		return strings.TrimSpace(cells[idx])
	}

	serial := cell(HeaderSerial)
	key := i.normalizer.Normalize(serial)
	if key == "" {
		return domain.SourceRow{}, false
	}
	section := cell(HeaderSection)
	if section == "" {
		section = sheetSection
	}
	return domain.SourceRow{
		SerialRaw:     serial,
		SerialKey:     key,
		NamePrimary:   cell(HeaderNamePrimary),
		NameSecondary: cell(HeaderNameSecondary),
		Category:      cell(HeaderCategory),
		Description:   cell(HeaderDescription),
		SectionName:   i.aliases.Correct(section),
		FileName:      cell(HeaderFileName),
	}, true
}

func sheetFilter(sheets []string) map[string]bool {
	if len(sheets) == 0 {
		return nil
	}
	selected := make(map[string]bool, len(sheets))
	for _, s := range sheets {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			selected[s] = true
		}
	}
	if len(selected) == 0 {
		return nil
	}
	return selected
}
