package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/formsync/modules/catalog/domain"
)

func TestLoadTables_Defaults(t *testing.T) {
	tables, err := LoadTables("")
	require.NoError(t, err)
	require.Equal(t, DefaultTables(), tables)
}

func TestLoadTables_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
headers:
  serial_number: ["ref", "reference"]
section_aliases:
  people ops: Human Resources
code_prefixes:
  PO: Procurement
uncategorized: Unsorted
`), 0o644))

	tables, err := LoadTables(path)
	require.NoError(t, err)
	require.Equal(t, []string{"ref", "reference"}, tables.Headers[HeaderSerial])
	require.NotEmpty(t, tables.Headers[HeaderNamePrimary])
	require.Equal(t, "Human Resources", tables.SectionAliases["people ops"])
	require.Equal(t, "Human Resources", tables.SectionAliases["human recourses"])
	require.Equal(t, "Procurement", tables.CodePrefixes["po"])
	require.Equal(t, "Unsorted", tables.Uncategorized)
}

func TestLoadTables_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
uncategorized = "Other"

[headers]
category = ["kind"]

[code_prefixes]
lg = "Legal Affairs"
`), 0o644))

	tables, err := LoadTables(path)
	require.NoError(t, err)
	require.Equal(t, []string{"kind"}, tables.Headers[HeaderCategory])
	require.Equal(t, "Legal Affairs", tables.CodePrefixes["lg"])
	require.Equal(t, "Other", tables.Uncategorized)
}

func TestLoadTables_Errors(t *testing.T) {
	dir := t.TempDir()
	var cfgErr *domain.ConfigurationError

	_, err := LoadTables(filepath.Join(dir, "missing.yaml"))
	require.ErrorAs(t, err, &cfgErr)

	unknown := filepath.Join(dir, "unknown.yaml")
	require.NoError(t, os.WriteFile(unknown, []byte("headers:\n  owner: [\"owner\"]\n"), 0o644))
	_, err = LoadTables(unknown)
	require.ErrorAs(t, err, &cfgErr)

	_, err = LoadTables(filepath.Join(dir, "tables.json"))
	require.ErrorAs(t, err, &cfgErr)
}
