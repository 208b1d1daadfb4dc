package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-faster/errors"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/iota-uz/formsync/modules/catalog/domain"
	"github.com/iota-uz/formsync/pkg/composables"
	"github.com/iota-uz/formsync/pkg/metrics"
)

type RenameStatus string

const (
	RenamePlanned   RenameStatus = "PLANNED"
	RenameRenamed   RenameStatus = "RENAMED"
	RenameFailed    RenameStatus = "FAILED"
	RenameSkipped   RenameStatus = "SKIPPED"
	RenameUnmatched RenameStatus = "UNMATCHED"
)

const (
	ReasonByName      = "match-by-name"
	ReasonBySubstring = "match-by-substring"
	ReasonAlreadyCode = "already-named-by-code"
	ReasonUnmatched   = "unmatched"
)

// RenameIndex holds what the workbook knows about codes and names.
type RenameIndex struct {
	// Names maps name match keys (primary, secondary and file-name columns) to raw codes.
	Names map[string]string
	// Codes maps code match keys to raw codes.
	Codes map[string]string
	// Known holds the normalized keys of all codes.
	Known map[string]bool

	displayNames []string
	nameCodes    map[string]string
}

// NewRenameIndex builds the index from ingested rows. Later rows win.
func NewRenameIndex(rows []domain.SourceRow, normalizer *CodeNormalizer) *RenameIndex {
	if normalizer == nil {
		normalizer = defaultNormalizer
	}
	idx := &RenameIndex{
		Names:     map[string]string{},
		Codes:     map[string]string{},
		Known:     map[string]bool{},
		nameCodes: map[string]string{},
	}
	for _, row := range rows {
		code := strings.TrimSpace(row.SerialRaw)
		if code == "" {
			continue
		}
		if k := normalizer.MatchKey(code); k != "" {
			idx.Codes[k] = code
		}
		if k := normalizer.Normalize(code); k != "" {
			idx.Known[k] = true
		}
		for _, name := range []string{row.NamePrimary, row.NameSecondary, row.FileName} {
			if k := normalizer.MatchKey(name); k != "" {
				idx.Names[k] = code
				if _, seen := idx.nameCodes[name]; !seen {
					idx.displayNames = append(idx.displayNames, name)
				}
				idx.nameCodes[name] = code
			}
		}
	}
	return idx
}

// RenamePlan is one row of the rename report.
type RenamePlan struct {
	Source      string       `json:"source"`
	SourceName  string       `json:"source_name"`
	Destination string       `json:"destination,omitempty"`
	DestName    string       `json:"destination_name,omitempty"`
	Code        string       `json:"code,omitempty"`
	Reason      string       `json:"match_reason"`
	Status      RenameStatus `json:"status"`
	Suggestion  string       `json:"suggestion,omitempty"`
	Error       string       `json:"error,omitempty"`
}

type RenamePlanner struct {
	normalizer *CodeNormalizer
	ext        string
}

func NewRenamePlanner(normalizer *CodeNormalizer, ext string) *RenamePlanner {
	if normalizer == nil {
		normalizer = defaultNormalizer
	}
	if ext == "" {
		ext = DefaultExtensions[0]
	}
	return &RenamePlanner{normalizer: normalizer, ext: strings.ToLower(ext)}
}

// PlanRenames proposes a code-based name for every document not already named by
// a code. It only reads the filesystem. Documents are planned in the given order
// and later plans never reuse a destination claimed by an earlier one.
func (p *RenamePlanner) PlanRenames(docs []domain.Document, idx *RenameIndex) []RenamePlan {
	codeKeys := make([]string, 0, len(idx.Codes))
	for k := range idx.Codes {
		codeKeys = append(codeKeys, k)
	}
	sort.Slice(codeKeys, func(i, j int) bool {
		if len(codeKeys[i]) != len(codeKeys[j]) {
			return len(codeKeys[i]) > len(codeKeys[j])
		}
		return codeKeys[i] < codeKeys[j]
	})

	claimed := map[string]bool{}
	plans := make([]RenamePlan, 0, len(docs))
	for _, doc := range docs {
		plan := RenamePlan{Source: doc.Path, SourceName: doc.Name}

		if idx.Known[p.normalizer.Normalize(doc.Stem)] {
			plan.Reason = ReasonAlreadyCode
			plan.Status = RenameSkipped
			plans = append(plans, plan)
			continue
		}

		stemKey := p.normalizer.MatchKey(doc.Stem)
		code, reason := idx.Names[stemKey], ReasonByName
		if code == "" || stemKey == "" {
			code, reason = "", ReasonBySubstring
			for _, ck := range codeKeys {
				if stemKey != "" && strings.Contains(stemKey, ck) {
					code = idx.Codes[ck]
					break
				}
			}
		}
		if code == "" {
			plan.Reason = ReasonUnmatched
			plan.Status = RenameUnmatched
			plan.Suggestion = idx.suggest(doc.Stem)
			plans = append(plans, plan)
			continue
		}

		dir := filepath.Dir(doc.Path)
		name := p.destination(dir, doc, code, claimed)
		claimed[strings.ToLower(name)] = true
		plan.Code = code
		plan.Reason = reason
		plan.DestName = name
		plan.Destination = filepath.Join(dir, name)
		if name == doc.Name {
			plan.Status = RenameSkipped
		} else {
			plan.Status = RenamePlanned
		}
		plans = append(plans, plan)
	}
	return plans
}

func (p *RenamePlanner) destination(dir string, doc domain.Document, code string, claimed map[string]bool) string {
	base := sanitizeFileName(code)
	name := base + p.ext
	for n := 1; p.occupied(dir, doc, name) || claimed[strings.ToLower(name)]; n++ {
		name = fmt.Sprintf("%s__%d%s", base, n, p.ext)
	}
	return name
}

// occupied reports whether name exists in dir as a file other than doc.
func (p *RenamePlanner) occupied(dir string, doc domain.Document, name string) bool {
	dst, err := os.Stat(filepath.Join(dir, name))
	if err != nil {
		return false
	}
	src, err := os.Stat(doc.Path)
	if err != nil {
		return true
	}
	return !os.SameFile(src, dst)
}

func sanitizeFileName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '-'
		}
		return r
	}, strings.TrimSpace(s))
}

// suggest returns the workbook name closest to stem, formatted with its code.
func (idx *RenameIndex) suggest(stem string) string {
	if stem == "" || len(idx.displayNames) == 0 {
		return ""
	}
	ranks := fuzzy.RankFindNormalizedFold(stem, idx.displayNames)
	if len(ranks) == 0 {
		for _, name := range idx.displayNames {
			if fuzzy.MatchNormalizedFold(name, stem) {
				ranks = append(ranks, fuzzy.Rank{
					Source:   name,
					Target:   name,
					Distance: fuzzy.LevenshteinDistance(strings.ToLower(name), strings.ToLower(stem)),
				})
			}
		}
	}
	if len(ranks) == 0 {
		return ""
	}
	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].Distance != ranks[j].Distance {
			return ranks[i].Distance < ranks[j].Distance
		}
		return ranks[i].Target < ranks[j].Target
	})
	best := ranks[0].Target
	return fmt.Sprintf("%s (%s)", best, idx.nameCodes[best])
}

// ApplyRenames executes the planned renames. Each rename succeeds or fails on its
// own; the returned plans carry the final status.
func (p *RenamePlanner) ApplyRenames(ctx context.Context, plans []RenamePlan) []RenamePlan {
	log := composables.UseLogger(ctx)
	out := make([]RenamePlan, len(plans))
	copy(out, plans)
	for i := range out {
		plan := &out[i]
		if plan.Status != RenamePlanned {
			continue
		}
		if err := ctx.Err(); err != nil {
			plan.Status = RenameFailed
			plan.Error = err.Error()
			continue
		}
		if err := renameNoReplace(plan.Source, plan.Destination); err != nil {
			plan.Status = RenameFailed
			plan.Error = err.Error()
			log.WithError(err).WithField("source", plan.SourceName).Error("rename failed")
			continue
		}
		plan.Status = RenameRenamed
		log.WithField("source", plan.SourceName).WithField("destination", plan.DestName).Info("renamed")
	}
	for _, plan := range out {
		metrics.ObserveRename(string(plan.Status))
	}
	return out
}

func renameNoReplace(src, dst string) error {
	if _, err := os.Stat(dst); err == nil {
		return errors.Errorf("destination %s already exists", filepath.Base(dst))
	}
	return os.Rename(src, dst)
}

var renameReportHeader = []string{"source_name", "destination_name", "match_reason", "status", "suggestion"}

// WriteRenameReport writes plans as CSV.
func WriteRenameReport(w io.Writer, plans []RenamePlan) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(renameReportHeader); err != nil {
		return err
	}
	for _, p := range plans {
		suggestion := p.Suggestion
		if p.Error != "" {
			suggestion = p.Error
		}
		if err := cw.Write([]string{p.SourceName, p.DestName, p.Reason, string(p.Status), suggestion}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// RenameCounts tallies plans by status.
func RenameCounts(plans []RenamePlan) map[RenameStatus]int {
	counts := map[RenameStatus]int{}
	for _, p := range plans {
		counts[p.Status]++
	}
	return counts
}
