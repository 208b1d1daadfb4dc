package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/formsync/modules/catalog/domain"
	"github.com/iota-uz/formsync/modules/catalog/infrastructure/persistence"
)

func TestSectionResolver_AliasCorrection(t *testing.T) {
	m := persistence.NewMemoryStore()
	hr := m.SeedSection(domain.Section{NamePrimary: "Human Resources", NameSecondary: "الموارد البشرية"})
	r := NewSectionResolver(m.Store(nil).Sections, DefaultTables(), nil, false)

	s, err := r.Resolve(context.Background(), "  Human   Recourses ", false)
	require.NoError(t, err)
	require.NotNil(t, s)
	require.Equal(t, hr.ID, s.ID)

	s, err = r.Resolve(context.Background(), "الموارد البشرية", false)
	require.NoError(t, err)
	require.Equal(t, hr.ID, s.ID)
}

func TestSectionResolver_SubstringMatch(t *testing.T) {
	m := persistence.NewMemoryStore()
	fin := m.SeedSection(domain.Section{NamePrimary: "Finance Department", NameSecondary: "المالية"})
	r := NewSectionResolver(m.Store(nil).Sections, DefaultTables(), nil, false)

	s, err := r.Resolve(context.Background(), "finance", false)
	require.NoError(t, err)
	require.Equal(t, fin.ID, s.ID)

	s, err = r.Resolve(context.Background(), "xy", false)
	require.NoError(t, err)
	require.Nil(t, s)
}

func TestSectionResolver_CreateMissing(t *testing.T) {
	m := persistence.NewMemoryStore()
	r := NewSectionResolver(m.Store(nil).Sections, DefaultTables(), nil, false)
	ctx := context.Background()

	s, err := r.Resolve(ctx, "Legal", false)
	require.NoError(t, err)
	require.Nil(t, s)

	s, err = r.Resolve(ctx, "Legal", true)
	require.NoError(t, err)
	require.False(t, s.Planned())
	require.Equal(t, "Legal", s.NamePrimary)
	require.Equal(t, "Legal", s.NameSecondary)

	again, err := r.Resolve(ctx, "legal", true)
	require.NoError(t, err)
	require.Equal(t, s.ID, again.ID)
	require.Len(t, m.Sections(), 1)
}

func TestSectionResolver_DryRunPlansSections(t *testing.T) {
	m := persistence.NewMemoryStore()
	r := NewSectionResolver(m.Store(nil).Sections, DefaultTables(), nil, true)
	ctx := context.Background()

	s, err := r.Resolve(ctx, "Legal Affairs", true)
	require.NoError(t, err)
	require.True(t, s.Planned())
	require.Empty(t, m.Sections())

	same, err := r.Resolve(ctx, "legal affairs", false)
	require.NoError(t, err)
	require.Same(t, s, same)

	partial, err := r.Resolve(ctx, "Legal", false)
	require.NoError(t, err)
	require.Same(t, s, partial)
}

func TestSectionResolver_GuessFromCodePrefix(t *testing.T) {
	r := NewSectionResolver(persistence.NewMemoryStore().Store(nil).Sections, DefaultTables(), nil, false)
	require.Equal(t, "Human Resources", r.GuessFromCodePrefix("HR-1"))
	require.Equal(t, "Finance", r.GuessFromCodePrefix("fi_020.pdf"))
	require.Equal(t, DefaultUncategorized, r.GuessFromCodePrefix("unknown-doc"))
	require.Equal(t, DefaultUncategorized, r.GuessFromCodePrefix("7-11"))
	require.Equal(t, DefaultUncategorized, r.GuessFromCodePrefix(""))
}

func TestSectionResolver_UsesGivenTables(t *testing.T) {
	tables := Tables{
		SectionAliases: map[string]string{"ops": "Operations"},
		CodePrefixes:   map[string]string{"OP": "Operations"},
		Uncategorized:  "Misc",
	}
	m := persistence.NewMemoryStore()
	ops := m.SeedSection(domain.Section{NamePrimary: "Operations"})
	r := NewSectionResolver(m.Store(nil).Sections, tables, nil, false)

	s, err := r.Resolve(context.Background(), "OPS", false)
	require.NoError(t, err)
	require.Equal(t, ops.ID, s.ID)
	require.Equal(t, "Operations", r.GuessFromCodePrefix("op-1"))
	require.Equal(t, "Misc", r.GuessFromCodePrefix("hr-1"))
}
