package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"mercadolibros/internal/database"

	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jackc/pgx/v5/pgconn"
)

const dialectPostgres = "postgres"

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

var ErrDuplicateKey = errors.New("duplicate key")

// DBTX is satisfied by both *sql.DB and *sql.Tx
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store groups the repositories so services can run several calls in one transaction
type Store interface {
	Books() BookRepository
	Genres() GenreRepository
	// WithTx runs fn against a Store bound to a single transaction. Calling
	// WithTx on a transactional Store reuses the open transaction.
	WithTx(ctx context.Context, fn func(tx Store) error) error
}

type store struct {
	db   *sql.DB
	conn DBTX
}

// NewStore creates a Postgres backed Store
func NewStore(db *sql.DB) Store {
	return &store{db: db, conn: db}
}

func (s *store) Books() BookRepository {
	return NewBookRepository(s.conn)
}

func (s *store) Genres() GenreRepository {
	return NewGenreRepository(s.conn)
}

func (s *store) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if s.db == nil {
		return fn(s)
	}
	return database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		return fn(&store{conn: tx})
	})
}

// translateError maps constraint violations onto repository sentinels
func translateError(err error, notFound error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		return fmt.Errorf("%w: %s", ErrDuplicateKey, pgErr.ConstraintName)
	case pgForeignKeyViolation:
		return fmt.Errorf("%w: %s", notFound, pgErr.ConstraintName)
	}
	return err
}

type scanner interface {
	Scan(dest ...any) error
}
