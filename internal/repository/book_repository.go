package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"mercadolibros/internal/domain"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
)

var (
	ErrBookNotFound = errors.New("book not found")
)

var bookColumns = []string{
	"b.id", "b.uuid", "b.isbn", "b.title", "b.authors", "b.price", "b.description",
	"b.publisher", "b.image_url", "b.status", "b.created_at", "b.updated_at",
	"g.id", "g.code", "g.name", "g.status", "g.created_at", "g.updated_at",
}

var bookSortColumns = map[string]string{
	"id":         "b.id",
	"uuid":       "b.uuid",
	"isbn":       "b.isbn",
	"title":      "b.title",
	"authors":    "b.authors",
	"price":      "b.price",
	"publisher":  "b.publisher",
	"createdAt":  "b.created_at",
	"genre":      "g.name",
	"genre.id":   "g.id",
	"genre.name": "g.name",
	"genre.code": "g.code",
}

// BookCriteria filters a book search. Empty fields impose no constraint.
// Genre must already be a canonical genre name.
type BookCriteria struct {
	Title     string
	Authors   string
	Genre     string
	Publisher string
}

// BookRepository defines the interface for book data access
type BookRepository interface {
	FindByUUID(ctx context.Context, id uuid.UUID) (*domain.Book, error)
	FindByISBN(ctx context.Context, isbn string) (*domain.Book, error)
	// FindByISBNIncludingDeleted locks the matched row until the transaction ends
	FindByISBNIncludingDeleted(ctx context.Context, isbn string) (*domain.Book, error)
	Search(ctx context.Context, criteria BookCriteria, pageable Pageable) (*Page[domain.Book], error)
	Save(ctx context.Context, book *domain.Book) error
	SaveAll(ctx context.Context, books []*domain.Book) error
	Delete(ctx context.Context, id int64) error
	CountIncludingDeleted(ctx context.Context) (int64, error)
	CountByGenreID(ctx context.Context, genreID int64, includeDeleted bool) (int64, error)
}

type bookRepository struct {
	db DBTX
}

// NewBookRepository creates a new instance of BookRepository
func NewBookRepository(db DBTX) BookRepository {
	return &bookRepository{db: db}
}

func scanBook(row scanner) (*domain.Book, error) {
	b := &domain.Book{}
	err := row.Scan(
		&b.ID,
		&b.UUID,
		&b.ISBN,
		&b.Title,
		&b.Authors,
		&b.Price,
		&b.Description,
		&b.Publisher,
		&b.ImageURL,
		&b.Status,
		&b.CreatedAt,
		&b.UpdatedAt,
		&b.Genre.ID,
		&b.Genre.Code,
		&b.Genre.Name,
		&b.Genre.Status,
		&b.Genre.CreatedAt,
		&b.Genre.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *bookRepository) findOne(ctx context.Context, where string, args ...any) (*domain.Book, error) {
	query := "SELECT " + strings.Join(bookColumns, ", ") +
		" FROM books b JOIN genres g ON g.id = b.genre_id WHERE " + where

	book, err := scanBook(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("failed to find book: %w", err)
	}
	return book, nil
}

// FindByUUID retrieves an active book by its external identifier
func (r *bookRepository) FindByUUID(ctx context.Context, id uuid.UUID) (*domain.Book, error) {
	return r.findOne(ctx, "b.uuid = $1 AND b.status = $2", id, domain.StatusActive)
}

// FindByISBN retrieves an active book by ISBN
func (r *bookRepository) FindByISBN(ctx context.Context, isbn string) (*domain.Book, error) {
	return r.findOne(ctx, "b.isbn = $1 AND b.status = $2", isbn, domain.StatusActive)
}

func (r *bookRepository) FindByISBNIncludingDeleted(ctx context.Context, isbn string) (*domain.Book, error) {
	return r.findOne(ctx, "b.isbn = $1 FOR UPDATE OF b", isbn)
}

// Search retrieves a page of active books matching every non-empty criterion
func (r *bookRepository) Search(ctx context.Context, criteria BookCriteria, pageable Pageable) (*Page[domain.Book], error) {
	order, err := orderBy(pageable.Sort, bookSortColumns, "b.id")
	if err != nil {
		return nil, err
	}

	ds := goqu.Dialect(dialectPostgres).
		From(goqu.T("books").As("b")).
		Join(goqu.T("genres").As("g"), goqu.On(goqu.I("g.id").Eq(goqu.I("b.genre_id")))).
		Where(criteriaFilters(criteria)...).
		Prepared(true)

	countQuery, countArgs, err := ds.Select(goqu.COUNT(goqu.Star())).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build book count query: %w", err)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count books: %w", err)
	}
	if total == 0 {
		return NewPage[domain.Book](nil, pageable, 0), nil
	}

	query, args, err := ds.Select(columnList(bookColumns)...).
		Order(order...).
		Limit(uint(pageable.Size)).
		Offset(uint(pageable.Offset())).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build book search query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search books: %w", err)
	}
	defer rows.Close()

	books := []domain.Book{}
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, *book)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating books: %w", err)
	}

	return NewPage(books, pageable, total), nil
}

func criteriaFilters(c BookCriteria) []exp.Expression {
	filters := []exp.Expression{goqu.I("b.status").Eq(domain.StatusActive)}

	if c.Title != "" {
		filters = append(filters, goqu.I("b.title").ILike(containsPattern(c.Title)))
	}
	if c.Authors != "" {
		filters = append(filters, goqu.I("b.authors").ILike(containsPattern(c.Authors)))
	}
	if c.Publisher != "" {
		filters = append(filters, goqu.I("b.publisher").ILike(containsPattern(c.Publisher)))
	}
	if c.Genre != "" {
		filters = append(filters, goqu.I("g.name").Eq(c.Genre))
	}

	return filters
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// Save inserts the book when it has no ID yet and updates it otherwise
func (r *bookRepository) Save(ctx context.Context, book *domain.Book) error {
	if book.Status == "" {
		book.Status = domain.StatusActive
	}

	if book.ID == 0 {
		query := `
			INSERT INTO books (uuid, isbn, title, authors, price, description, publisher, image_url, genre_id, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id, created_at, updated_at
		`
		err := r.db.QueryRowContext(
			ctx,
			query,
			book.UUID,
			book.ISBN,
			book.Title,
			book.Authors,
			book.Price,
			book.Description,
			book.Publisher,
			book.ImageURL,
			book.Genre.ID,
			book.Status,
		).Scan(&book.ID, &book.CreatedAt, &book.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert book: %w", translateError(err, ErrGenreNotFound))
		}
		return nil
	}

	query := `
		UPDATE books
		SET isbn = $2, title = $3, authors = $4, price = $5, description = $6,
		    publisher = $7, image_url = $8, genre_id = $9, status = $10
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(
		ctx,
		query,
		book.ID,
		book.ISBN,
		book.Title,
		book.Authors,
		book.Price,
		book.Description,
		book.Publisher,
		book.ImageURL,
		book.Genre.ID,
		book.Status,
	).Scan(&book.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBookNotFound
		}
		return fmt.Errorf("failed to update book: %w", translateError(err, ErrGenreNotFound))
	}
	return nil
}

// SaveAll inserts new books with a single multi-row statement
func (r *bookRepository) SaveAll(ctx context.Context, books []*domain.Book) error {
	if len(books) == 0 {
		return nil
	}

	rows := make([][]any, len(books))
	for i, b := range books {
		if b.Status == "" {
			b.Status = domain.StatusActive
		}
		rows[i] = goqu.Vals{b.UUID, b.ISBN, b.Title, b.Authors, b.Price, b.Description, b.Publisher, b.ImageURL, b.Genre.ID, b.Status}
	}

	query, args, err := goqu.Dialect(dialectPostgres).
		Insert("books").
		Cols("uuid", "isbn", "title", "authors", "price", "description", "publisher", "image_url", "genre_id", "status").
		Vals(rows...).
		Returning("id").
		Prepared(true).
		ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build book insert: %w", err)
	}

	result, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to insert books: %w", translateError(err, ErrGenreNotFound))
	}
	defer result.Close()

	for i := 0; result.Next(); i++ {
		if err := result.Scan(&books[i].ID); err != nil {
			return fmt.Errorf("failed to scan book id: %w", err)
		}
	}

	if err := result.Err(); err != nil {
		return fmt.Errorf("failed to insert books: %w", translateError(err, ErrGenreNotFound))
	}
	return nil
}

// Delete soft-deletes a book
func (r *bookRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `UPDATE books SET status = $2 WHERE id = $1`, id, domain.StatusDeleted)
	if err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrBookNotFound
	}

	return nil
}

func (r *bookRepository) CountIncludingDeleted(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count books: %w", err)
	}
	return count, nil
}

func (r *bookRepository) CountByGenreID(ctx context.Context, genreID int64, includeDeleted bool) (int64, error) {
	query := `SELECT COUNT(*) FROM books WHERE genre_id = $1`
	args := []any{genreID}
	if !includeDeleted {
		query += ` AND status = $2`
		args = append(args, domain.StatusActive)
	}

	var count int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count books by genre: %w", err)
	}
	return count, nil
}
