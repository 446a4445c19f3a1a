package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"mercadolibros/internal/domain"

	"github.com/doug-martin/goqu/v9"
)

var (
	ErrGenreNotFound = errors.New("genre not found")
)

var genreColumns = []string{"id", "code", "name", "status", "created_at", "updated_at"}

var genreSortColumns = map[string]string{
	"id":   "id",
	"code": "code",
	"name": "name",
}

// GenreRepository defines the interface for genre data access
type GenreRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.Genre, error)
	FindByCode(ctx context.Context, code string) (*domain.Genre, error)
	FindByName(ctx context.Context, name string) (*domain.Genre, error)
	// FindByCodeIncludingDeleted locks the matched row until the transaction ends
	FindByCodeIncludingDeleted(ctx context.Context, code string) (*domain.Genre, error)
	FindAll(ctx context.Context, pageable Pageable) (*Page[domain.Genre], error)
	Save(ctx context.Context, genre *domain.Genre) error
	Delete(ctx context.Context, id int64) error
	CountIncludingDeleted(ctx context.Context) (int64, error)
}

type genreRepository struct {
	db DBTX
}

// NewGenreRepository creates a new instance of GenreRepository
func NewGenreRepository(db DBTX) GenreRepository {
	return &genreRepository{db: db}
}

func scanGenre(row scanner) (*domain.Genre, error) {
	g := &domain.Genre{}
	err := row.Scan(&g.ID, &g.Code, &g.Name, &g.Status, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (r *genreRepository) findOne(ctx context.Context, where string, args ...any) (*domain.Genre, error) {
	query := "SELECT " + strings.Join(genreColumns, ", ") + " FROM genres WHERE " + where

	genre, err := scanGenre(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGenreNotFound
		}
		return nil, fmt.Errorf("failed to find genre: %w", err)
	}
	return genre, nil
}

// FindByID retrieves an active genre by ID
func (r *genreRepository) FindByID(ctx context.Context, id int64) (*domain.Genre, error) {
	return r.findOne(ctx, "id = $1 AND status = $2", id, domain.StatusActive)
}

// FindByCode retrieves an active genre by code
func (r *genreRepository) FindByCode(ctx context.Context, code string) (*domain.Genre, error) {
	return r.findOne(ctx, "code = $1 AND status = $2", code, domain.StatusActive)
}

// FindByName retrieves an active genre by its canonical name
func (r *genreRepository) FindByName(ctx context.Context, name string) (*domain.Genre, error) {
	return r.findOne(ctx, "name = $1 AND status = $2", name, domain.StatusActive)
}

func (r *genreRepository) FindByCodeIncludingDeleted(ctx context.Context, code string) (*domain.Genre, error) {
	return r.findOne(ctx, "code = $1 FOR UPDATE", code)
}

// FindAll retrieves a page of active genres
func (r *genreRepository) FindAll(ctx context.Context, pageable Pageable) (*Page[domain.Genre], error) {
	order, err := orderBy(pageable.Sort, genreSortColumns, "id")
	if err != nil {
		return nil, err
	}

	ds := goqu.Dialect(dialectPostgres).
		From("genres").
		Where(goqu.C("status").Eq(domain.StatusActive)).
		Prepared(true)

	countQuery, countArgs, err := ds.Select(goqu.COUNT(goqu.Star())).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build genre count query: %w", err)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count genres: %w", err)
	}
	if total == 0 {
		return NewPage[domain.Genre](nil, pageable, 0), nil
	}

	query, args, err := ds.Select(columnList(genreColumns)...).
		Order(order...).
		Limit(uint(pageable.Size)).
		Offset(uint(pageable.Offset())).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build genre list query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list genres: %w", err)
	}
	defer rows.Close()

	genres := []domain.Genre{}
	for rows.Next() {
		genre, err := scanGenre(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan genre: %w", err)
		}
		genres = append(genres, *genre)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating genres: %w", err)
	}

	return NewPage(genres, pageable, total), nil
}

// Save inserts the genre when it has no ID yet and updates it otherwise
func (r *genreRepository) Save(ctx context.Context, genre *domain.Genre) error {
	if genre.Status == "" {
		genre.Status = domain.StatusActive
	}

	if genre.ID == 0 {
		query := `
			INSERT INTO genres (code, name, status)
			VALUES ($1, $2, $3)
			RETURNING id, created_at, updated_at
		`
		err := r.db.QueryRowContext(ctx, query, genre.Code, genre.Name, genre.Status).
			Scan(&genre.ID, &genre.CreatedAt, &genre.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert genre: %w", translateError(err, ErrGenreNotFound))
		}
		return nil
	}

	query := `
		UPDATE genres
		SET code = $2, name = $3, status = $4
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query, genre.ID, genre.Code, genre.Name, genre.Status).
		Scan(&genre.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrGenreNotFound
		}
		return fmt.Errorf("failed to update genre: %w", translateError(err, ErrGenreNotFound))
	}
	return nil
}

// Delete soft-deletes a genre
func (r *genreRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `UPDATE genres SET status = $2 WHERE id = $1`, id, domain.StatusDeleted)
	if err != nil {
		return fmt.Errorf("failed to delete genre: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrGenreNotFound
	}

	return nil
}

func (r *genreRepository) CountIncludingDeleted(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM genres`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count genres: %w", err)
	}
	return count, nil
}

func columnList(cols []string) []any {
	out := make([]any, len(cols))
	for i, c := range cols {
		out[i] = goqu.I(c)
	}
	return out
}
