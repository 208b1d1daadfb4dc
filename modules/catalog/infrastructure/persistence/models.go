package persistence

import (
	"time"

	"github.com/google/uuid"
)

type sectionRow struct {
	ID            uuid.UUID `db:"id"`
	NamePrimary   string    `db:"name_primary"`
	NameSecondary string    `db:"name_secondary"`
	CreatedAt     time.Time `db:"created_at"`
}

type entryRow struct {
	ID                    uuid.UUID `db:"id"`
	SectionID             uuid.UUID `db:"section_id"`
	Code                  string    `db:"code"`
	NamePrimary           string    `db:"name_primary"`
	NameSecondary         string    `db:"name_secondary"`
	Category              string    `db:"category"`
	Description           string    `db:"description"`
	AttachmentPath        string    `db:"attachment_path"`
	AttachmentName        string    `db:"attachment_name"`
	AttachmentSize        int64     `db:"attachment_size"`
	AttachmentSHA256      string    `db:"attachment_sha256"`
	AttachmentContentType string    `db:"attachment_content_type"`
	AttachmentPages       int       `db:"attachment_pages"`
	CreatedAt             time.Time `db:"created_at"`
	UpdatedAt             time.Time `db:"updated_at"`
}
