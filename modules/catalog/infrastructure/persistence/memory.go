package persistence

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/iota-uz/formsync/modules/catalog/domain"
)

// MemoryStore is an in-process catalog used for offline preflight runs and tests.
// Transactions snapshot the whole catalog and restore it on failure.
type MemoryStore struct {
	mu       sync.Mutex
	sections []domain.Section
	entries  map[string]domain.Entry

	// FailOn makes the named operation ("create_entry", "update_entry",
	// "replace_attachment", "create_section") fail with the given error.
	FailOn map[string]error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]domain.Entry{}}
}

// Store wires the memory repositories with the given attachment storage.
func (m *MemoryStore) Store(attachments domain.AttachmentStorage) domain.Store {
	return domain.Store{
		Sections:    memorySections{m},
		Entries:     memoryEntries{m},
		Tx:          m,
		Attachments: attachments,
	}
}

func (m *MemoryStore) SeedSection(s domain.Section) domain.Section {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	m.sections = append(m.sections, s)
	return s
}

func (m *MemoryStore) SeedEntry(e domain.Entry) domain.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	m.entries[strings.ToLower(e.Code)] = e
	return e
}

// Entries returns a copy of all entries ordered by code.
func (m *MemoryStore) Entries() []domain.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func (m *MemoryStore) Sections() []domain.Section {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Section(nil), m.sections...)
}

func (m *MemoryStore) InTx(ctx context.Context, fn func(context.Context) error) error {
	restore := m.snapshot()
	if err := fn(ctx); err != nil {
		restore()
		return err
	}
	return nil
}

func (m *MemoryStore) InReadTx(ctx context.Context, fn func(context.Context) error) error {
	restore := m.snapshot()
	defer restore()
	return fn(ctx)
}

func (m *MemoryStore) snapshot() func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	sections := append([]domain.Section(nil), m.sections...)
	entries := make(map[string]domain.Entry, len(m.entries))
	for k, v := range m.entries {
		entries[k] = v
	}
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.sections = sections
		m.entries = entries
	}
}

func (m *MemoryStore) fail(op string) error {
	if m.FailOn == nil {
		return nil
	}
	return m.FailOn[op]
}

type memorySections struct{ m *MemoryStore }

func (r memorySections) FindByName(_ context.Context, name string) (*domain.Section, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, s := range r.m.sections {
		if strings.EqualFold(s.NamePrimary, name) || strings.EqualFold(s.NameSecondary, name) {
			out := s
			return &out, nil
		}
	}
	return nil, domain.ErrSectionNotFound
}

func (r memorySections) SearchByName(_ context.Context, fragment string) (*domain.Section, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	f := strings.ToLower(fragment)
	for _, s := range r.m.sections {
		if contains(s.NamePrimary, f) || contains(s.NameSecondary, f) {
			out := s
			return &out, nil
		}
	}
	for _, s := range r.m.sections {
		if containedIn(s.NamePrimary, f) || containedIn(s.NameSecondary, f) {
			out := s
			return &out, nil
		}
	}
	return nil, domain.ErrSectionNotFound
}

func contains(name, lowerFragment string) bool {
	return lowerFragment != "" && strings.Contains(strings.ToLower(name), lowerFragment)
}

func containedIn(name, lowerFragment string) bool {
	return name != "" && strings.Contains(lowerFragment, strings.ToLower(name))
}

func (r memorySections) Create(_ context.Context, s *domain.Section) (*domain.Section, error) {
	if err := r.m.fail("create_section"); err != nil {
		return nil, err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := *s
	if out.ID == uuid.Nil {
		out.ID = uuid.New()
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now().UTC()
	}
	r.m.sections = append(r.m.sections, out)
	return &out, nil
}

func (r memorySections) List(_ context.Context) ([]*domain.Section, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]*domain.Section, 0, len(r.m.sections))
	for i := range r.m.sections {
		s := r.m.sections[i]
		out = append(out, &s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].NamePrimary < out[j].NamePrimary })
	return out, nil
}

type memoryEntries struct{ m *MemoryStore }

func (r memoryEntries) GetByCode(_ context.Context, code string) (*domain.Entry, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	e, ok := r.m.entries[strings.ToLower(code)]
	if !ok {
		return nil, domain.ErrEntryNotFound
	}
	return &e, nil
}

func (r memoryEntries) Create(_ context.Context, e *domain.Entry) (*domain.Entry, error) {
	if err := r.m.fail("create_entry"); err != nil {
		return nil, err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	key := strings.ToLower(e.Code)
	if _, exists := r.m.entries[key]; exists {
		return nil, errors.Wrapf(domain.ErrDuplicateCode, "code %q", e.Code)
	}
	out := *e
	if out.ID == uuid.Nil {
		out.ID = uuid.New()
	}
	now := time.Now().UTC()
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now
	}
	out.UpdatedAt = now
	r.m.entries[key] = out
	return &out, nil
}

func (r memoryEntries) Update(_ context.Context, e *domain.Entry, fields []domain.Field) error {
	if err := r.m.fail("update_entry"); err != nil {
		return err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	key, cur, ok := r.m.byID(e.ID)
	if !ok {
		return errors.Wrapf(domain.ErrEntryNotFound, "entry %s", e.ID)
	}
	for _, f := range fields {
		switch f {
		case domain.FieldSection:
			cur.SectionID = e.SectionID
		case domain.FieldNamePrimary:
			cur.NamePrimary = e.NamePrimary
		case domain.FieldNameSecondary:
			cur.NameSecondary = e.NameSecondary
		case domain.FieldCategory:
			cur.Category = e.Category
		case domain.FieldDescription:
			cur.Description = e.Description
		default:
			return errors.Errorf("unknown catalog entry field %q", f)
		}
	}
	cur.UpdatedAt = time.Now().UTC()
	r.m.entries[key] = cur
	return nil
}

func (r memoryEntries) ReplaceAttachment(_ context.Context, id uuid.UUID, a domain.Attachment) error {
	if err := r.m.fail("replace_attachment"); err != nil {
		return err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	key, cur, ok := r.m.byID(id)
	if !ok {
		return errors.Wrapf(domain.ErrEntryNotFound, "entry %s", id)
	}
	cur.Attachment = a
	cur.UpdatedAt = time.Now().UTC()
	r.m.entries[key] = cur
	return nil
}

func (r memoryEntries) Count(_ context.Context) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return len(r.m.entries), nil
}

func (m *MemoryStore) byID(id uuid.UUID) (string, domain.Entry, bool) {
	for k, e := range m.entries {
		if e.ID == id {
			return k, e, true
		}
	}
	return "", domain.Entry{}, false
}
