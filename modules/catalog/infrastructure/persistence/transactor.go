package persistence

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/iota-uz/formsync/modules/catalog/domain"
	"github.com/iota-uz/formsync/pkg/composables"
)

type Transactor struct {
	db *sqlx.DB
}

func NewTransactor(db *sqlx.DB) domain.Transactor {
	return &Transactor{db: db}
}

func (t *Transactor) InTx(ctx context.Context, fn func(context.Context) error) error {
	return composables.InTx(composables.WithDB(ctx, t.db), fn)
}

func (t *Transactor) InReadTx(ctx context.Context, fn func(context.Context) error) error {
	return composables.InReadOnlyTx(composables.WithDB(ctx, t.db), fn)
}

// NewStore wires the SQL repositories around db.
func NewStore(db *sqlx.DB, attachments domain.AttachmentStorage) domain.Store {
	return domain.Store{
		Sections:    NewSectionRepository(),
		Entries:     NewEntryRepository(),
		Tx:          NewTransactor(db),
		Attachments: attachments,
	}
}
