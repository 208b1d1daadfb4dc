package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/formsync/modules/catalog/domain"
)

func TestMemoryStore_RollsBackFailedTransaction(t *testing.T) {
	m := NewMemoryStore()
	store := m.Store(nil)
	ctx := context.Background()
	sec := m.SeedSection(domain.Section{NamePrimary: "Finance"})

	boom := errors.New("boom")
	err := store.Tx.InTx(ctx, func(ctx context.Context) error {
		_, err := store.Entries.Create(ctx, &domain.Entry{Code: "FIN-001", SectionID: sec.ID})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	n, err := store.Entries.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestMemoryStore_ReadTxNeverPersists(t *testing.T) {
	m := NewMemoryStore()
	store := m.Store(nil)
	ctx := context.Background()

	require.NoError(t, store.Tx.InReadTx(ctx, func(ctx context.Context) error {
		_, err := store.Sections.Create(ctx, &domain.Section{NamePrimary: "Legal"})
		return err
	}))
	require.Empty(t, m.Sections())
}

func TestMemoryStore_CodeIsCaseInsensitive(t *testing.T) {
	m := NewMemoryStore()
	store := m.Store(nil)
	ctx := context.Background()
	m.SeedEntry(domain.Entry{Code: "HR-001"})

	e, err := store.Entries.GetByCode(ctx, "hr-001")
	require.NoError(t, err)
	require.Equal(t, "HR-001", e.Code)

	_, err = store.Entries.Create(ctx, &domain.Entry{Code: "hr-001"})
	require.ErrorIs(t, err, domain.ErrDuplicateCode)
}

func TestMemoryStore_SearchByName(t *testing.T) {
	m := NewMemoryStore()
	store := m.Store(nil)
	ctx := context.Background()
	m.SeedSection(domain.Section{NamePrimary: "Human Resources", NameSecondary: "الموارد البشرية"})

	s, err := store.Sections.SearchByName(ctx, "resources")
	require.NoError(t, err)
	require.Equal(t, "Human Resources", s.NamePrimary)

	s, err = store.Sections.SearchByName(ctx, "human resources department")
	require.NoError(t, err)
	require.Equal(t, "Human Resources", s.NamePrimary)

	_, err = store.Sections.SearchByName(ctx, "finance")
	require.ErrorIs(t, err, domain.ErrSectionNotFound)
}

func TestMemoryStore_UpdateWritesOnlyGivenFields(t *testing.T) {
	m := NewMemoryStore()
	store := m.Store(nil)
	ctx := context.Background()
	e := m.SeedEntry(domain.Entry{Code: "HR-001", NamePrimary: "Old", Category: "Forms"})

	e.NamePrimary = "New"
	e.Category = "Changed"
	require.NoError(t, store.Entries.Update(ctx, &e, []domain.Field{domain.FieldNamePrimary}))

	got := m.Entries()[0]
	require.Equal(t, "New", got.NamePrimary)
	require.Equal(t, "Forms", got.Category)
}
