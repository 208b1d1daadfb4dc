package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/iota-uz/formsync/modules/catalog/domain"
	"github.com/iota-uz/formsync/pkg/composables"
)

const uniqueViolation = "23505"

const (
	entrySelectQuery = `
		SELECT id, section_id, code, name_primary, name_secondary, category, description,
			attachment_path, attachment_name, attachment_size, attachment_sha256,
			attachment_content_type, attachment_pages, created_at, updated_at
		FROM catalog_entries`

	entryGetByCodeQuery = entrySelectQuery + ` WHERE lower(code) = lower($1) LIMIT 1`

	entryInsertQuery = `
		INSERT INTO catalog_entries (
			id, section_id, code, name_primary, name_secondary, category, description,
			attachment_path, attachment_name, attachment_size, attachment_sha256,
			attachment_content_type, attachment_pages, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	entryReplaceAttachmentQuery = `
		UPDATE catalog_entries
		SET attachment_path = $1, attachment_name = $2, attachment_size = $3, attachment_sha256 = $4,
			attachment_content_type = $5, attachment_pages = $6, updated_at = $7
		WHERE id = $8`

	entryCountQuery = `SELECT count(*) FROM catalog_entries`
)

var entryFieldColumns = map[domain.Field]string{
	domain.FieldSection:       "section_id",
	domain.FieldNamePrimary:   "name_primary",
	domain.FieldNameSecondary: "name_secondary",
	domain.FieldCategory:      "category",
	domain.FieldDescription:   "description",
}

type EntryRepository struct{}

func NewEntryRepository() domain.EntryRepository {
	return &EntryRepository{}
}

func (r *EntryRepository) GetByCode(ctx context.Context, code string) (*domain.Entry, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	var row entryRow
	if err := tx.GetContext(ctx, &row, entryGetByCodeQuery, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, errors.Wrap(err, "failed to query catalog entry")
	}
	return toDomainEntry(row), nil
}

func (r *EntryRepository) Create(ctx context.Context, e *domain.Entry) (*domain.Entry, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	row := toDBEntry(e)
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	now := time.Now().UTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now

	if _, err := tx.ExecContext(
		ctx,
		entryInsertQuery,
		row.ID,
		row.SectionID,
		row.Code,
		row.NamePrimary,
		row.NameSecondary,
		row.Category,
		row.Description,
		row.AttachmentPath,
		row.AttachmentName,
		row.AttachmentSize,
		row.AttachmentSHA256,
		row.AttachmentContentType,
		row.AttachmentPages,
		row.CreatedAt,
		row.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return nil, errors.Wrapf(domain.ErrDuplicateCode, "code %q", row.Code)
		}
		return nil, errors.Wrap(err, "failed to create catalog entry")
	}
	return toDomainEntry(row), nil
}

func (r *EntryRepository) Update(ctx context.Context, e *domain.Entry, fields []domain.Field) error {
	if len(fields) == 0 {
		return nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}

	row := toDBEntry(e)
	values := map[string]interface{}{
		"section_id":     row.SectionID,
		"name_primary":   row.NamePrimary,
		"name_secondary": row.NameSecondary,
		"category":       row.Category,
		"description":    row.Description,
	}

	sets := make([]string, 0, len(fields)+1)
	args := make([]interface{}, 0, len(fields)+2)
	for _, f := range fields {
		column, ok := entryFieldColumns[f]
		if !ok {
			return errors.Errorf("unknown catalog entry field %q", f)
		}
		args = append(args, values[column])
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	args = append(args, time.Now().UTC())
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))
	args = append(args, row.ID)

	query := fmt.Sprintf(`UPDATE catalog_entries SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "failed to update catalog entry")
	}
	return requireAffected(res, row.Code)
}

func (r *EntryRepository) ReplaceAttachment(ctx context.Context, id uuid.UUID, a domain.Attachment) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}

	res, err := tx.ExecContext(
		ctx,
		entryReplaceAttachmentQuery,
		a.Path,
		a.Name,
		a.Size,
		a.SHA256,
		a.ContentType,
		a.Pages,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return errors.Wrap(err, "failed to replace attachment")
	}
	return requireAffected(res, id.String())
}

func (r *EntryRepository) Count(ctx context.Context) (int, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get transaction")
	}
	var n int
	if err := tx.GetContext(ctx, &n, entryCountQuery); err != nil {
		return 0, errors.Wrap(err, "failed to count catalog entries")
	}
	return n, nil
}

func requireAffected(res sql.Result, ref string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if n == 0 {
		return errors.Wrapf(domain.ErrEntryNotFound, "entry %s", ref)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	return false
}
