package domain

import (
	"context"

	"github.com/google/uuid"
)

type SectionRepository interface {
	// FindByName matches either language name exactly, ignoring case.
	FindByName(ctx context.Context, name string) (*Section, error)
	// SearchByName matches either language name containing fragment, ignoring case.
	SearchByName(ctx context.Context, fragment string) (*Section, error)
	Create(ctx context.Context, s *Section) (*Section, error)
	List(ctx context.Context) ([]*Section, error)
}

type EntryRepository interface {
	// GetByCode matches the code exactly, ignoring case.
	GetByCode(ctx context.Context, code string) (*Entry, error)
	Create(ctx context.Context, e *Entry) (*Entry, error)
	// Update writes only the given fields of e.
	Update(ctx context.Context, e *Entry, fields []Field) error
	ReplaceAttachment(ctx context.Context, id uuid.UUID, a Attachment) error
	Count(ctx context.Context) (int, error)
}

// Transactor scopes repository calls to one ambient transaction carried in the context.
type Transactor interface {
	InTx(ctx context.Context, fn func(context.Context) error) error
	// InReadTx runs fn in a transaction that is never committed.
	InReadTx(ctx context.Context, fn func(context.Context) error) error
}

// AttachmentSource is a document file to be stored as an attachment.
type AttachmentSource struct {
	Path string
	Name string
}

type AttachmentStorage interface {
	// Write stores the source under its final location and returns the attachment
	// metadata. Written reports whether this call created the file.
	Write(ctx context.Context, src AttachmentSource) (a Attachment, written bool, err error)
	Remove(ctx context.Context, a Attachment) error
}

// Store bundles the collaborators the reconciliation engine needs.
type Store struct {
	Sections    SectionRepository
	Entries     EntryRepository
	Tx          Transactor
	Attachments AttachmentStorage
}
