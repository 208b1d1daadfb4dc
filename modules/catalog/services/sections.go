package services

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-faster/errors"
	"golang.org/x/text/cases"

	"github.com/iota-uz/formsync/modules/catalog/domain"
)

// minFragment is the shortest name tried as a substring match.
const minFragment = 3

// SectionResolver maps free-text section names to sections. It is scoped to one
// run: resolutions are cached, and in dry-run mode sections that would be
// created are kept as planned sections so later rows resolve to them.
type SectionResolver struct {
	repo          domain.SectionRepository
	aliases       *AliasTable
	prefixes      map[string]string
	uncategorized string
	normalizer    *CodeNormalizer
	dryRun        bool
	maxName       int

	fold    cases.Caser
	cache   map[string]*domain.Section
	planned []*domain.Section
}

func NewSectionResolver(repo domain.SectionRepository, tables Tables, normalizer *CodeNormalizer, dryRun bool) *SectionResolver {
	prefixes := make(map[string]string, len(tables.CodePrefixes))
	for k, v := range tables.CodePrefixes {
		prefixes[strings.ToLower(k)] = v
	}
	uncategorized := tables.Uncategorized
	if uncategorized == "" {
		uncategorized = DefaultUncategorized
	}
	if normalizer == nil {
		normalizer = defaultNormalizer
	}
	return &SectionResolver{
		repo:          repo,
		aliases:       NewAliasTable(tables.SectionAliases),
		prefixes:      prefixes,
		uncategorized: uncategorized,
		normalizer:    normalizer,
		dryRun:        dryRun,
		fold:          cases.Fold(),
		cache:         map[string]*domain.Section{},
	}
}

// WithNameLimit stops the resolver from creating sections whose name is longer
// than max characters.
func (r *SectionResolver) WithNameLimit(max int) *SectionResolver {
	r.maxName = max
	return r
}

// NameTooLong reports whether name, after alias correction, cannot be created.
func (r *SectionResolver) NameTooLong(name string) bool {
	return domain.Exceeds(r.aliases.Correct(name), r.maxName)
}

// Resolve returns the section for name, creating it when createMissing is set.
// A nil section with a nil error means the name is unresolved.
func (r *SectionResolver) Resolve(ctx context.Context, name string, createMissing bool) (*domain.Section, error) {
	name = r.aliases.Correct(name)
	if name == "" {
		return nil, nil
	}
	key := r.fold.String(name)
	if s, ok := r.cache[key]; ok {
		return s, nil
	}

	s, err := r.lookup(ctx, name)
	if err != nil {
		return nil, err
	}
	if s == nil && createMissing {
		s, err = r.create(ctx, name)
		if err != nil {
			return nil, err
		}
	}
	if s != nil {
		r.cache[key] = s
	}
	return s, nil
}

// GuessFromCodePrefix maps the two-letter prefix of code to a section name. Codes
// without a mapped prefix land in the uncategorized bucket.
func (r *SectionResolver) GuessFromCodePrefix(code string) string {
	key := r.normalizer.Normalize(code)
	letters := []rune{}
	for _, c := range key {
		if !unicode.IsLetter(c) || len(letters) == 2 {
			break
		}
		letters = append(letters, c)
	}
	if len(letters) == 2 {
		if name, ok := r.prefixes[string(letters)]; ok {
			return name
		}
	}
	return r.uncategorized
}

// CorrectName applies alias correction without resolving.
func (r *SectionResolver) CorrectName(name string) string {
	return r.aliases.Correct(name)
}

func (r *SectionResolver) lookup(ctx context.Context, name string) (*domain.Section, error) {
	s, err := r.repo.FindByName(ctx, name)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, domain.ErrSectionNotFound) {
		return nil, errors.Wrapf(err, "find section %q", name)
	}
	if s := r.plannedMatch(name, false); s != nil {
		return s, nil
	}

	if utf8.RuneCountInString(name) < minFragment {
		return nil, nil
	}
	s, err = r.repo.SearchByName(ctx, name)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, domain.ErrSectionNotFound) {
		return nil, errors.Wrapf(err, "search section %q", name)
	}
	return r.plannedMatch(name, true), nil
}

func (r *SectionResolver) create(ctx context.Context, name string) (*domain.Section, error) {
	if domain.Exceeds(name, r.maxName) {
		return nil, nil
	}
	s := &domain.Section{NamePrimary: name, NameSecondary: name}
	if r.dryRun {
		r.planned = append(r.planned, s)
		return s, nil
	}
	created, err := r.repo.Create(ctx, s)
	if err != nil {
		return nil, errors.Wrapf(err, "create section %q", name)
	}
	return created, nil
}

// plannedMatch mirrors the repository lookups against sections planned in this
// dry run, which the repository cannot see.
func (r *SectionResolver) plannedMatch(name string, substring bool) *domain.Section {
	n := r.fold.String(name)
	for _, s := range r.planned {
		p := r.fold.String(s.NamePrimary)
		if !substring {
			if p == n {
				return s
			}
			continue
		}
		if strings.Contains(p, n) || strings.Contains(n, p) {
			return s
		}
	}
	return nil
}
