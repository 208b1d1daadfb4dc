package services

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderResolver_CanonicalField(t *testing.T) {
	r := NewHeaderResolver(DefaultTables().Headers, 0)
	require.Equal(t, "serial_number", r.CanonicalField("Serial Number"))
	require.Equal(t, "serial_number", r.CanonicalField("الكود"))
	require.Equal(t, "name_secondary", r.CanonicalField("Name (Arabic)"))
	require.Equal(t, "name_primary", r.CanonicalField(" english name "))
	require.Equal(t, "section", r.CanonicalField("القسم"))
	require.Equal(t, "category", r.CanonicalField("القسم الداخلي"))
	require.Equal(t, "file_name", r.CanonicalField("PDF"))
	require.Equal(t, "owner", r.CanonicalField(" Owner "))
}

func TestHeaderResolver_LocatesHeaderBelowTitleRows(t *testing.T) {
	r := NewHeaderResolver(DefaultTables().Headers, 0)
	rows := [][]string{
		{"Forms register 2024"},
		{},
		{"#", "Code", "English Name", "Arabic Name", "Category", "Notes"},
		{"1", "HR-001", "Leave Request", "طلب إجازة", "Forms", ""},
	}
	m, err := r.LocateHeaderRow(rows)
	require.NoError(t, err)
	require.Equal(t, 2, m.Row)
	require.Equal(t, 5+serialBonus, m.Score)
	require.Equal(t, 1, m.Columns[HeaderSerial])
	require.Equal(t, 2, m.Columns[HeaderNamePrimary])
	require.Equal(t, "#", m.Headers[0])
	require.Equal(t, "serial_number", m.Headers[1])
}

func TestHeaderResolver_SerialBonusBreaksOtherwiseEqualRows(t *testing.T) {
	r := NewHeaderResolver(DefaultTables().Headers, 0)
	rows := [][]string{
		{"Category", "Description"},
		{"Code", "Category"},
	}
	m, err := r.LocateHeaderRow(rows)
	require.NoError(t, err)
	require.Equal(t, 1, m.Row)
}

func TestHeaderResolver_TiesKeepEarliestRow(t *testing.T) {
	r := NewHeaderResolver(DefaultTables().Headers, 0)
	rows := [][]string{
		{"Code", "Category"},
		{"Code", "Description"},
	}
	m, err := r.LocateHeaderRow(rows)
	require.NoError(t, err)
	require.Equal(t, 0, m.Row)
}

func TestHeaderResolver_FirstDuplicateColumnWins(t *testing.T) {
	r := NewHeaderResolver(DefaultTables().Headers, 0)
	m, err := r.LocateHeaderRow([][]string{{"Code", "Serial", "Category"}})
	require.NoError(t, err)
	require.Equal(t, 0, m.Columns[HeaderSerial])
}

func TestHeaderResolver_NoHeaderRow(t *testing.T) {
	r := NewHeaderResolver(DefaultTables().Headers, 2)
	_, err := r.LocateHeaderRow([][]string{{"title"}, {}, {"Code", "Category"}})
	require.ErrorIs(t, err, ErrNoHeaderRow)

	_, err = r.LocateHeaderRow(nil)
	require.ErrorIs(t, err, ErrNoHeaderRow)
}
