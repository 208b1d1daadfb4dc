package composables

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/iota-uz/formsync/pkg/constants"
)

var (
	ErrNoTx = errors.New("no transaction found in context")
	ErrNoDB = errors.New("no database found in context")
)

// Querier is the subset of *sqlx.DB and *sqlx.Tx used by repositories.
type Querier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

func WithTx(ctx context.Context, tx *sqlx.Tx) context.Context {
	return context.WithValue(ctx, constants.TxKey, tx)
}

// UseTx returns the ambient transaction, falling back to the database handle.
func UseTx(ctx context.Context) (Querier, error) {
	if tx, ok := ctx.Value(constants.TxKey).(*sqlx.Tx); ok && tx != nil {
		return tx, nil
	}
	return UseDB(ctx)
}

func WithDB(ctx context.Context, db *sqlx.DB) context.Context {
	return context.WithValue(ctx, constants.DBKey, db)
}

func UseDB(ctx context.Context) (*sqlx.DB, error) {
	db, ok := ctx.Value(constants.DBKey).(*sqlx.DB)
	if !ok || db == nil {
		return nil, ErrNoDB
	}
	return db, nil
}

// InTx runs fn in a transaction. ALWAYS creates a new transaction.
func InTx(ctx context.Context, fn func(context.Context) error) error {
	return inTx(ctx, nil, fn)
}

// InReadOnlyTx runs fn in a transaction that is always rolled back.
func InReadOnlyTx(ctx context.Context, fn func(context.Context) error) error {
	db, err := UseDB(ctx)
	if err != nil {
		return err
	}
	tx, err := db.BeginTxx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return err
	}
	err = fn(WithTx(ctx, tx))
	if rErr := tx.Rollback(); rErr != nil && !errors.Is(rErr, sql.ErrTxDone) {
		return errors.Join(err, rErr)
	}
	return err
}

func inTx(ctx context.Context, opts *sql.TxOptions, fn func(context.Context) error) error {
	db, err := UseDB(ctx)
	if err != nil {
		return err
	}

	tx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		return err
	}

	if err := fn(WithTx(ctx, tx)); err != nil {
		if rErr := tx.Rollback(); rErr != nil {
			return errors.Join(err, rErr)
		}
		return err
	}
	return tx.Commit()
}
