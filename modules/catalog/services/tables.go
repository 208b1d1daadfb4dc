package services

import (
	"strings"

	"golang.org/x/text/cases"
)

// HeaderField is a canonical workbook column.
type HeaderField string

const (
	HeaderSerial        HeaderField = "serial_number"
	HeaderNamePrimary   HeaderField = "name_primary"
	HeaderNameSecondary HeaderField = "name_secondary"
	HeaderCategory      HeaderField = "category"
	HeaderDescription   HeaderField = "description"
	HeaderSection       HeaderField = "section"
	// HeaderFileName feeds the rename name map and does not count toward header detection.
	HeaderFileName HeaderField = "file_name"
)

// ScoredHeaders are the fields counted when scoring a candidate header row.
var ScoredHeaders = []HeaderField{
	HeaderSerial,
	HeaderNamePrimary,
	HeaderNameSecondary,
	HeaderCategory,
	HeaderDescription,
	HeaderSection,
}

func isCanonical(f HeaderField) bool {
	if f == HeaderFileName {
		return true
	}
	for _, s := range ScoredHeaders {
		if s == f {
			return true
		}
	}
	return false
}

const DefaultUncategorized = "Uncategorized"

// Tables holds the lookup data driving header, section and prefix resolution.
type Tables struct {
	Headers        map[HeaderField][]string `yaml:"headers" toml:"headers"`
	SectionAliases map[string]string        `yaml:"section_aliases" toml:"section_aliases"`
	CodePrefixes   map[string]string        `yaml:"code_prefixes" toml:"code_prefixes"`
	Uncategorized  string                   `yaml:"uncategorized" toml:"uncategorized"`
}

// DefaultTables returns a fresh copy of the built-in tables.
func DefaultTables() Tables {
	return Tables{
		Headers: map[HeaderField][]string{
			HeaderSerial: {
				"serial", "serial number", "serial_number", "serial no", "code", "form code", "model code",
				"رقم", "الرقم", "الكود", "رمز", "رقم النموذج", "رمز النموذج",
			},
			HeaderNamePrimary: {
				"name_en", "name en", "english", "english name", "name (english)", "form name",
				"الاسم بالانجليزي", "الاسم الإنجليزي", "الاسم الانكليزي",
			},
			HeaderNameSecondary: {
				"name_ar", "name ar", "arabic", "arabic name", "name (arabic)",
				"الاسم بالعربية", "الاسم العربي",
			},
			HeaderCategory: {
				"category", "type", "الفئة", "القسم الداخلي", "التصنيف",
			},
			HeaderDescription: {
				"description", "details", "notes", "وصف", "الوصف", "ملاحظات",
			},
			HeaderSection: {
				"section", "section_ar", "section_en", "department", "القسم", "الإدارة",
			},
			HeaderFileName: {
				"file_name", "filename", "file", "pdf", "pdf_name", "اسم الملف",
			},
		},
		SectionAliases: map[string]string{
			"human recourses":  "Human Resources",
			"human resource":   "Human Resources",
			"humen resources":  "Human Resources",
			"hr":               "Human Resources",
			"finanace":         "Finance",
			"fin":              "Finance",
			"it":               "Information Technology",
			"i.t.":             "Information Technology",
			"admin":            "Administration",
			"adminstration":    "Administration",
			"procurment":       "Procurement",
			"الموارد البشريه": "الموارد البشرية",
			"الماليه":          "المالية",
		},
		CodePrefixes: map[string]string{
			"hr": "Human Resources",
			"fi": "Finance",
			"it": "Information Technology",
			"ad": "Administration",
			"pr": "Procurement",
			"lg": "Legal",
			"qa": "Quality Assurance",
		},
		Uncategorized: DefaultUncategorized,
	}
}

// AliasTable corrects known misspellings and abbreviations of section names.
type AliasTable struct {
	fold    cases.Caser
	aliases map[string]string
}

func NewAliasTable(aliases map[string]string) *AliasTable {
	t := &AliasTable{fold: cases.Fold(), aliases: make(map[string]string, len(aliases))}
	for k, v := range aliases {
		t.aliases[t.key(k)] = collapseSpace(v)
	}
	return t
}

// Correct collapses whitespace and applies the alias table.
func (t *AliasTable) Correct(name string) string {
	name = collapseSpace(name)
	if canonical, ok := t.aliases[t.key(name)]; ok {
		return canonical
	}
	return name
}

func (t *AliasTable) key(s string) string {
	return t.fold.String(collapseSpace(s))
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
