// Package domain holds the catalog entities and the store contracts the import
// pipeline works against.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Section is the organizational grouping a catalog entry belongs to.
type Section struct {
	ID            uuid.UUID `db:"id"`
	NamePrimary   string    `db:"name_primary"`
	NameSecondary string    `db:"name_secondary"`
	CreatedAt     time.Time `db:"created_at"`
}

// Planned reports whether the section only exists in a dry-run plan.
func (s *Section) Planned() bool {
	return s.ID == uuid.Nil
}

// Attachment is the stored document file of a catalog entry.
type Attachment struct {
	// Path is relative to the storage root, e.g. "forms/3f9a0c1b22de/HR-001.pdf".
	Path        string `json:"path"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	SHA256      string `json:"sha256"`
	ContentType string `json:"content_type"`
	Pages       int    `json:"pages"`
}

func (a Attachment) IsZero() bool {
	return a.Path == "" && a.Name == ""
}

// Entry is a persisted catalog record. Code is unique case-insensitively.
type Entry struct {
	ID            uuid.UUID
	SectionID     uuid.UUID
	Code          string
	NamePrimary   string
	NameSecondary string
	Category      string
	Description   string
	Attachment    Attachment
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Field names an updatable entry column.
type Field string

const (
	FieldSection       Field = "section"
	FieldNamePrimary   Field = "name_primary"
	FieldNameSecondary Field = "name_secondary"
	FieldCategory      Field = "category"
	FieldDescription   Field = "description"
)

// DiffFields lists the fields compared when reconciling an existing entry.
var DiffFields = []Field{
	FieldSection,
	FieldNamePrimary,
	FieldNameSecondary,
	FieldCategory,
	FieldDescription,
}
