package persistence

import (
	"github.com/iota-uz/formsync/modules/catalog/domain"
)

func toDomainSection(r sectionRow) *domain.Section {
	return &domain.Section{
		ID:            r.ID,
		NamePrimary:   r.NamePrimary,
		NameSecondary: r.NameSecondary,
		CreatedAt:     r.CreatedAt,
	}
}

func toDBSection(s *domain.Section) sectionRow {
	return sectionRow{
		ID:            s.ID,
		NamePrimary:   s.NamePrimary,
		NameSecondary: s.NameSecondary,
		CreatedAt:     s.CreatedAt,
	}
}

func toDomainEntry(r entryRow) *domain.Entry {
	return &domain.Entry{
		ID:            r.ID,
		SectionID:     r.SectionID,
		Code:          r.Code,
		NamePrimary:   r.NamePrimary,
		NameSecondary: r.NameSecondary,
		Category:      r.Category,
		Description:   r.Description,
		Attachment: domain.Attachment{
			Path:        r.AttachmentPath,
			Name:        r.AttachmentName,
			Size:        r.AttachmentSize,
			SHA256:      r.AttachmentSHA256,
			ContentType: r.AttachmentContentType,
			Pages:       r.AttachmentPages,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func toDBEntry(e *domain.Entry) entryRow {
	return entryRow{
		ID:                    e.ID,
		SectionID:             e.SectionID,
		Code:                  e.Code,
		NamePrimary:           e.NamePrimary,
		NameSecondary:         e.NameSecondary,
		Category:              e.Category,
		Description:           e.Description,
		AttachmentPath:        e.Attachment.Path,
		AttachmentName:        e.Attachment.Name,
		AttachmentSize:        e.Attachment.Size,
		AttachmentSHA256:      e.Attachment.SHA256,
		AttachmentContentType: e.Attachment.ContentType,
		AttachmentPages:       e.Attachment.Pages,
		CreatedAt:             e.CreatedAt,
		UpdatedAt:             e.UpdatedAt,
	}
}
