package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/xuri/excelize/v2"

	"github.com/iota-uz/formsync/modules/catalog/domain"
	"github.com/iota-uz/formsync/pkg/composables"
)

// SectionRow is one row of a sections workbook.
type SectionRow struct {
	NamePrimary   string
	NameSecondary string
	Line          int
}

type SectionImportResult struct {
	Created    []string `json:"created"`
	Existing   []string `json:"existing"`
	Incomplete []string `json:"incomplete"`
	DryRun     bool     `json:"dry_run"`
}

// ReadSectionRows reads the first sheet of a sections workbook. The header row is
// located like in forms workbooks; without one, the first row is taken as the
// header with the secondary name in column A and the primary name in column B.
func ReadSectionRows(path string, headers *HeaderResolver) ([]SectionRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, domain.NewConfigurationError("workbook", "cannot open "+path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrapf(err, "read sheet %s", sheets[0])
	}

	start, primary, secondary := 1, 1, 0
	if match, err := headers.LocateHeaderRow(rows); err == nil {
		p, okP := match.Columns[HeaderNamePrimary]
		s, okS := match.Columns[HeaderNameSecondary]
		if okP && okS {
			start, primary, secondary = match.Row+1, p, s
		}
	}

	out := make([]SectionRow, 0, len(rows))
	for i := start; i < len(rows); i++ {
		cell := func(idx int) string {
			if idx < len(rows[i]) {
				return collapseSpace(rows[i][idx])
			}
			return ""
		}
		row := SectionRow{NamePrimary: cell(primary), NameSecondary: cell(secondary), Line: i + 1}
		if row.NamePrimary == "" && row.NameSecondary == "" {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

type SectionImportService struct {
	store  domain.Store
	limits domain.Limits
}

func NewSectionImportService(store domain.Store) *SectionImportService {
	return &SectionImportService{store: store, limits: domain.DefaultLimits()}
}

// Import creates the sections that do not exist yet. Rows missing either name are
// skipped; a section exists when a stored section has the same primary or
// secondary name, ignoring case.
func (s *SectionImportService) Import(ctx context.Context, rows []SectionRow, dryRun bool) (*SectionImportResult, error) {
	res := &SectionImportResult{DryRun: dryRun}
	log := composables.UseLogger(ctx)

	body := func(ctx context.Context) error {
		seen := map[string]bool{}
		for _, row := range rows {
			label := fmt.Sprintf("%s / %s", row.NamePrimary, row.NameSecondary)
			if row.NamePrimary == "" || row.NameSecondary == "" {
				res.Incomplete = append(res.Incomplete, fmt.Sprintf("row %d", row.Line))
				continue
			}
			if domain.Exceeds(row.NamePrimary, s.limits.SectionName) || domain.Exceeds(row.NameSecondary, s.limits.SectionName) {
				res.Incomplete = append(res.Incomplete, fmt.Sprintf("row %d: name exceeds %d characters", row.Line, s.limits.SectionName))
				continue
			}
			key := strings.ToLower(row.NamePrimary)
			if seen[key] {
				res.Existing = append(res.Existing, label)
				continue
			}
			seen[key] = true

			exists, err := s.exists(ctx, row)
			if err != nil {
				return err
			}
			if exists {
				res.Existing = append(res.Existing, label)
				continue
			}
			if !dryRun {
				if _, err := s.store.Sections.Create(ctx, &domain.Section{
					NamePrimary:   row.NamePrimary,
					NameSecondary: row.NameSecondary,
				}); err != nil {
					return &domain.PersistenceConflict{Op: "create section", Code: row.NamePrimary, Err: err}
				}
			}
			res.Created = append(res.Created, label)
			log.WithField("section", row.NamePrimary).Info("section created")
		}
		return nil
	}

	var err error
	if dryRun {
		err = s.store.Tx.InReadTx(ctx, body)
	} else {
		err = s.store.Tx.InTx(ctx, body)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *SectionImportService) exists(ctx context.Context, row SectionRow) (bool, error) {
	for _, name := range []string{row.NamePrimary, row.NameSecondary} {
		_, err := s.store.Sections.FindByName(ctx, name)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, domain.ErrSectionNotFound) {
			return false, &domain.PersistenceConflict{Op: "find section", Code: name, Err: err}
		}
	}
	return false, nil
}
