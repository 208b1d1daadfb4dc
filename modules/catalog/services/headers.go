package services

import (
	"strings"

	"github.com/go-faster/errors"
)

// DefaultHeaderScanRows bounds how far down a sheet the header row is searched for.
const DefaultHeaderScanRows = 20

const serialBonus = 2

var ErrNoHeaderRow = errors.New("no recognizable header row")

// HeaderMatch is the located header row of a sheet.
type HeaderMatch struct {
	Score int
	// Row is the 0-based index into the scanned rows.
	Row     int
	Headers []string
	Columns map[HeaderField]int
}

// HeaderResolver maps bilingual header synonyms to canonical fields.
type HeaderResolver struct {
	normalizer *CodeNormalizer
	synonyms   map[string]HeaderField
	scanRows   int
}

func NewHeaderResolver(headers map[HeaderField][]string, scanRows int) *HeaderResolver {
	if scanRows <= 0 {
		scanRows = DefaultHeaderScanRows
	}
	r := &HeaderResolver{
		normalizer: &CodeNormalizer{},
		synonyms:   map[string]HeaderField{},
		scanRows:   scanRows,
	}
	for field, names := range headers {
		r.synonyms[r.key(string(field))] = field
		for _, name := range names {
			if k := r.key(name); k != "" {
				r.synonyms[k] = field
			}
		}
	}
	return r
}

// Lookup resolves raw to a canonical field.
func (r *HeaderResolver) Lookup(raw string) (HeaderField, bool) {
	k := r.key(raw)
	if k == "" {
		return "", false
	}
	f, ok := r.synonyms[k]
	return f, ok
}

// CanonicalField returns the canonical field name for raw, or raw trimmed and
// lower-cased when it is not a known synonym.
func (r *HeaderResolver) CanonicalField(raw string) string {
	if f, ok := r.Lookup(raw); ok {
		return string(f)
	}
	return strings.ToLower(strings.TrimSpace(raw))
}

// LocateHeaderRow scores the first rows of a sheet and returns the best one.
// Ties keep the earliest row.
func (r *HeaderResolver) LocateHeaderRow(rows [][]string) (HeaderMatch, error) {
	best := HeaderMatch{Row: -1}
	limit := min(r.scanRows, len(rows))
	for i := 0; i < limit; i++ {
		columns := r.resolveColumns(rows[i])
		score := 0
		for _, f := range ScoredHeaders {
			if _, ok := columns[f]; ok {
				score++
			}
		}
		if _, ok := columns[HeaderSerial]; ok {
			score += serialBonus
		}
		if score > best.Score {
			best = HeaderMatch{Score: score, Row: i, Columns: columns}
		}
	}
	if best.Score == 0 {
		return HeaderMatch{}, ErrNoHeaderRow
	}
	best.Headers = make([]string, len(rows[best.Row]))
	for i, cell := range rows[best.Row] {
		best.Headers[i] = r.CanonicalField(cell)
	}
	return best, nil
}

func (r *HeaderResolver) resolveColumns(row []string) map[HeaderField]int {
	columns := map[HeaderField]int{}
	for i, cell := range row {
		f, ok := r.Lookup(cell)
		if !ok {
			continue
		}
		if _, seen := columns[f]; !seen {
			columns[f] = i
		}
	}
	return columns
}

func (r *HeaderResolver) key(s string) string {
	return r.normalizer.MatchKey(s)
}
