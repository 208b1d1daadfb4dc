package services

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-faster/errors"
	"gopkg.in/yaml.v3"

	"github.com/iota-uz/formsync/modules/catalog/domain"
)

// LoadTables merges the YAML or TOML file at path over DefaultTables. Header
// lists in the file replace the built-in list for that field; aliases and
// prefixes are added to the built-in ones. An empty path returns the defaults.
func LoadTables(path string) (Tables, error) {
	tables := DefaultTables()
	if path == "" {
		return tables, nil
	}

	var override Tables
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return Tables{}, domain.NewConfigurationError("FORMSYNC_TABLES_PATH", "cannot read tables file", err)
		}
		if err := yaml.Unmarshal(data, &override); err != nil {
			return Tables{}, domain.NewConfigurationError("FORMSYNC_TABLES_PATH", "invalid YAML", err)
		}
	case ".toml":
		if _, err := toml.DecodeFile(path, &override); err != nil {
			return Tables{}, domain.NewConfigurationError("FORMSYNC_TABLES_PATH", "invalid TOML", err)
		}
	default:
		return Tables{}, domain.NewConfigurationError("FORMSYNC_TABLES_PATH", "unsupported tables file extension "+ext, nil)
	}

	for field, synonyms := range override.Headers {
		if !isCanonical(field) {
			return Tables{}, domain.NewConfigurationError(
				"FORMSYNC_TABLES_PATH",
				"unknown header field "+string(field),
				errors.New("header fields must be canonical"),
			)
		}
		tables.Headers[field] = synonyms
	}
	for alias, name := range override.SectionAliases {
		tables.SectionAliases[alias] = name
	}
	for prefix, name := range override.CodePrefixes {
		tables.CodePrefixes[strings.ToLower(prefix)] = name
	}
	if override.Uncategorized != "" {
		tables.Uncategorized = override.Uncategorized
	}
	return tables, nil
}
