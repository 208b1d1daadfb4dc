package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/iota-uz/formsync/modules/catalog/domain"
	"github.com/iota-uz/formsync/pkg/composables"
)

const (
	sectionSelectQuery = `SELECT id, name_primary, name_secondary, created_at FROM catalog_sections`

	sectionFindByNameQuery = sectionSelectQuery + `
		WHERE lower(name_primary) = lower($1) OR lower(name_secondary) = lower($1)
		ORDER BY created_at, id
		LIMIT 1`

	// Sections whose name contains the fragment rank before sections whose name is
	// contained in the fragment.
	sectionSearchByNameQuery = sectionSelectQuery + `
		WHERE strpos(lower(name_primary), lower($1)) > 0
		   OR strpos(lower(name_secondary), lower($1)) > 0
		   OR (name_primary <> '' AND strpos(lower($1), lower(name_primary)) > 0)
		   OR (name_secondary <> '' AND strpos(lower($1), lower(name_secondary)) > 0)
		ORDER BY
			CASE WHEN strpos(lower(name_primary), lower($1)) > 0 OR strpos(lower(name_secondary), lower($1)) > 0 THEN 0 ELSE 1 END,
			created_at, id
		LIMIT 1`

	sectionInsertQuery = `
		INSERT INTO catalog_sections (id, name_primary, name_secondary, created_at)
		VALUES ($1, $2, $3, $4)`
)

type SectionRepository struct{}

func NewSectionRepository() domain.SectionRepository {
	return &SectionRepository{}
}

func (r *SectionRepository) FindByName(ctx context.Context, name string) (*domain.Section, error) {
	return r.queryOne(ctx, sectionFindByNameQuery, name)
}

func (r *SectionRepository) SearchByName(ctx context.Context, fragment string) (*domain.Section, error) {
	return r.queryOne(ctx, sectionSearchByNameQuery, fragment)
}

func (r *SectionRepository) Create(ctx context.Context, s *domain.Section) (*domain.Section, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	row := toDBSection(s)
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if _, err := tx.ExecContext(ctx, sectionInsertQuery, row.ID, row.NamePrimary, row.NameSecondary, row.CreatedAt); err != nil {
		return nil, errors.Wrap(err, "failed to create section")
	}
	return toDomainSection(row), nil
}

func (r *SectionRepository) List(ctx context.Context) ([]*domain.Section, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	var rows []sectionRow
	if err := tx.SelectContext(ctx, &rows, sectionSelectQuery+` ORDER BY name_primary, id`); err != nil {
		return nil, errors.Wrap(err, "failed to list sections")
	}
	out := make([]*domain.Section, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainSection(row))
	}
	return out, nil
}

func (r *SectionRepository) queryOne(ctx context.Context, query string, arg string) (*domain.Section, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	var row sectionRow
	if err := tx.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSectionNotFound
		}
		return nil, errors.Wrap(err, "failed to query section")
	}
	return toDomainSection(row), nil
}
