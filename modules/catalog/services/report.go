package services

import (
	"sort"

	"github.com/google/uuid"
	"github.com/wI2L/jsondiff"
)

// DefaultSampleLimit caps the sample list kept per report category.
const DefaultSampleLimit = 30

type Category string

const (
	CategoryCreated           Category = "created"
	CategoryUpdated           Category = "updated"
	CategoryUnchanged         Category = "unchanged"
	CategoryBadCode           Category = "skipped_bad_code"
	CategoryDuplicateDocument Category = "skipped_duplicate_document"
	CategoryNoRow             Category = "skipped_no_row"
	CategoryNoSection         Category = "skipped_no_section"
	CategoryInvalidRow        Category = "skipped_invalid_row"
	CategoryAttachmentFailed  Category = "skipped_attachment_failed"
	// CategoryRolledBack holds documents whose mutation was discarded by an aborted batch.
	CategoryRolledBack Category = "rolled_back"

	CategoryFallbackUsed Category = "fallback_used"
	CategoryNoDocument   Category = "skipped_no_document"
	CategorySheetSkipped Category = "skipped_sheet"
)

// DocumentCategories are the dispositions of a document; each scanned document
// is counted in exactly one of them.
var DocumentCategories = []Category{
	CategoryCreated,
	CategoryUpdated,
	CategoryUnchanged,
	CategoryBadCode,
	CategoryDuplicateDocument,
	CategoryNoRow,
	CategoryNoSection,
	CategoryInvalidRow,
	CategoryAttachmentFailed,
	CategoryRolledBack,
}

// ReportCategories is the display order of all categories.
var ReportCategories = append(append([]Category(nil), DocumentCategories...),
	CategoryFallbackUsed,
	CategoryNoDocument,
	CategorySheetSkipped,
)

// Issue is one sampled report item.
type Issue struct {
	Category Category `json:"category"`
	Item     string   `json:"item"`
	Detail   string   `json:"detail,omitempty"`
}

// Change describes a persisted (or, in dry runs, planned) entry mutation.
type Change struct {
	Code               string         `json:"code"`
	Document           string         `json:"document"`
	Action             Category       `json:"action"`
	Fields             []string       `json:"fields,omitempty"`
	AttachmentReplaced bool           `json:"attachment_replaced,omitempty"`
	Patch              jsondiff.Patch `json:"patch,omitempty"`
}

type outcome struct {
	category Category
	issue    Issue
}

// Report is the result of a reconciliation run.
type Report struct {
	RunID   uuid.UUID
	DryRun  bool
	Aborted bool
	Counts  map[Category]int
	Samples map[Category][]Issue
	Changes []Change

	sampleLimit int
	outcomes    []outcome
}

func NewReport(runID uuid.UUID, dryRun bool, sampleLimit int) *Report {
	if sampleLimit <= 0 {
		sampleLimit = DefaultSampleLimit
	}
	return &Report{
		RunID:       runID,
		DryRun:      dryRun,
		Counts:      map[Category]int{},
		Samples:     map[Category][]Issue{},
		sampleLimit: sampleLimit,
	}
}

func (r *Report) Count(c Category) int {
	return r.Counts[c]
}

// Truncated reports whether c has more items than were sampled.
func (r *Report) Truncated(c Category) bool {
	return r.Counts[c] > len(r.Samples[c])
}

// Documents sums the document dispositions.
func (r *Report) Documents() int {
	n := 0
	for _, c := range DocumentCategories {
		n += r.Counts[c]
	}
	return n
}

// Problems returns the sampled items of every category other than the
// successful dispositions, in display order.
func (r *Report) Problems() []Issue {
	var out []Issue
	for _, c := range ReportCategories {
		switch c {
		case CategoryCreated, CategoryUpdated, CategoryUnchanged:
			continue
		}
		out = append(out, r.Samples[c]...)
	}
	return out
}

// Add records an issue that is not a document disposition.
func (r *Report) Add(c Category, item, detail string) {
	r.Counts[c]++
	r.sample(Issue{Category: c, Item: item, Detail: detail})
}

func (r *Report) dispose(c Category, item, detail string) {
	issue := Issue{Category: c, Item: item, Detail: detail}
	r.Counts[c]++
	r.sample(issue)
	r.outcomes = append(r.outcomes, outcome{category: c, issue: issue})
}

func (r *Report) sample(issue Issue) {
	if len(r.Samples[issue.Category]) < r.sampleLimit {
		r.Samples[issue.Category] = append(r.Samples[issue.Category], issue)
	}
}

// abort moves every created or updated document into rolled_back and records
// the documents that were never reached.
func (r *Report) abort(unprocessed []string, detail string) {
	r.Aborted = true
	r.Changes = nil
	for _, c := range []Category{CategoryCreated, CategoryUpdated} {
		delete(r.Counts, c)
		delete(r.Samples, c)
	}
	kept := r.outcomes[:0]
	for _, o := range r.outcomes {
		if o.category == CategoryCreated || o.category == CategoryUpdated {
			r.Counts[CategoryRolledBack]++
			r.sample(Issue{Category: CategoryRolledBack, Item: o.issue.Item, Detail: "rolled back"})
			continue
		}
		kept = append(kept, o)
	}
	r.outcomes = kept
	for _, item := range unprocessed {
		r.dispose(CategoryRolledBack, item, detail)
	}
}

// ChangedCodes returns the codes of the recorded changes for action, sorted.
func (r *Report) ChangedCodes(action Category) []string {
	var codes []string
	for _, c := range r.Changes {
		if c.Action == action {
			codes = append(codes, c.Code)
		}
	}
	sort.Strings(codes)
	return codes
}
