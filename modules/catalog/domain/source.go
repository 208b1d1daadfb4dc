package domain

// SourceRow is one workbook record projected onto the catalog fields. It is
// rebuilt on every ingestion and never persisted directly.
type SourceRow struct {
	SerialRaw     string
	SerialKey     string
	NamePrimary   string
	NameSecondary string
	Category      string
	Description   string
	SectionName   string
	FileName      string

	Sheet string
	// Line is the 1-based worksheet row.
	Line int
}

// Document is a file found in the documents folder.
type Document struct {
	Path string
	Name string
	Stem string
	Key  string
	Size int64
}
