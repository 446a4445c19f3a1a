package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mercadolibros/internal/domain"
	"mercadolibros/internal/normalize"
	"mercadolibros/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BookInput carries the mutable attributes of a book
type BookInput struct {
	ISBN        string
	Title       string
	Authors     string
	Price       decimal.Decimal
	Description string
	Publisher   string
	GenreID     int64
	ImageURL    string
}

// BookCriteria is a free-text book search. Blank fields are ignored.
type BookCriteria struct {
	Title     string
	Authors   string
	Genre     string
	Publisher string
}

// BookService defines the interface for book business logic
type BookService interface {
	FindAll(ctx context.Context, pageable repository.Pageable) (*repository.Page[domain.Book], error)
	FindByUUID(ctx context.Context, id uuid.UUID) (*domain.Book, error)
	FindByISBN(ctx context.Context, isbn string) (*domain.Book, error)
	FindByCriteria(ctx context.Context, criteria BookCriteria, pageable repository.Pageable) (*repository.Page[domain.Book], error)
	Create(ctx context.Context, input BookInput) (*domain.Book, error)
	Update(ctx context.Context, id uuid.UUID, input BookInput) (*domain.Book, error)
	DeleteByUUID(ctx context.Context, id uuid.UUID) error
}

type bookService struct {
	store  repository.Store
	logger *zap.Logger
}

// NewBookService creates a new instance of BookService
func NewBookService(store repository.Store, logger *zap.Logger) BookService {
	return &bookService{store: store, logger: logger}
}

func (s *bookService) FindAll(ctx context.Context, pageable repository.Pageable) (*repository.Page[domain.Book], error) {
	return s.FindByCriteria(ctx, BookCriteria{}, pageable)
}

func (s *bookService) FindByUUID(ctx context.Context, id uuid.UUID) (*domain.Book, error) {
	book, err := s.store.Books().FindByUUID(ctx, id)
	if err != nil {
		return nil, bookLookupError(err, "book with uuid %s not found", id)
	}
	return book, nil
}

func (s *bookService) FindByISBN(ctx context.Context, isbn string) (*domain.Book, error) {
	isbn = normalize.ISBN(isbn)
	book, err := s.store.Books().FindByISBN(ctx, isbn)
	if err != nil {
		return nil, bookLookupError(err, "book with isbn %s not found", isbn)
	}
	return book, nil
}

// FindByCriteria matches title, authors and publisher as case-insensitive
// substrings and the genre by its canonical name
func (s *bookService) FindByCriteria(ctx context.Context, criteria BookCriteria, pageable repository.Pageable) (*repository.Page[domain.Book], error) {
	filter := repository.BookCriteria{
		Title:     strings.TrimSpace(criteria.Title),
		Authors:   strings.TrimSpace(criteria.Authors),
		Genre:     normalize.FormatName(criteria.Genre),
		Publisher: strings.TrimSpace(criteria.Publisher),
	}

	page, err := s.store.Books().Search(ctx, filter, pageable)
	if err != nil {
		return nil, listError(err, "books")
	}
	return page, nil
}

// Create inserts a new book, or resurrects the soft-deleted book holding the
// same ISBN while keeping its id and uuid. ISBNs are compared without separators.
func (s *bookService) Create(ctx context.Context, input BookInput) (*domain.Book, error) {
	var book *domain.Book
	resurrected := false
	input.ISBN = normalize.ISBN(input.ISBN)

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		genre, err := activeGenre(ctx, tx, input.GenreID, "cannot create book")
		if err != nil {
			return err
		}

		existing, err := tx.Books().FindByISBNIncludingDeleted(ctx, input.ISBN)
		switch {
		case errors.Is(err, repository.ErrBookNotFound):
			book = &domain.Book{UUID: uuid.New()}
		case err != nil:
			return fmt.Errorf("failed to look up book: %w", err)
		case !existing.Status.IsDeleted():
			return domain.Conflict("an active book with isbn %s already exists", input.ISBN)
		default:
			book = existing
			resurrected = true
		}

		input.applyTo(book, genre)
		book.Status = domain.StatusActive
		return saveBook(ctx, tx, book)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Book saved",
		zap.String("uuid", book.UUID.String()),
		zap.String("isbn", book.ISBN),
		zap.Bool("resurrected", resurrected),
	)
	return book, nil
}

// Update overwrites an active book. Moving to an ISBN held by any other row,
// active or deleted, is a conflict.
func (s *bookService) Update(ctx context.Context, id uuid.UUID, input BookInput) (*domain.Book, error) {
	var book *domain.Book
	input.ISBN = normalize.ISBN(input.ISBN)

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		current, err := tx.Books().FindByUUID(ctx, id)
		if err != nil {
			return bookLookupError(err, "book with uuid %s not found", id)
		}

		genre, err := activeGenre(ctx, tx, input.GenreID, "cannot update book")
		if err != nil {
			return err
		}

		if input.ISBN != current.ISBN {
			_, err := tx.Books().FindByISBNIncludingDeleted(ctx, input.ISBN)
			if err == nil {
				return domain.Conflict("cannot update: isbn %s already belongs to another book", input.ISBN)
			}
			if !errors.Is(err, repository.ErrBookNotFound) {
				return fmt.Errorf("failed to look up book: %w", err)
			}
		}

		input.applyTo(current, genre)
		book = current
		return saveBook(ctx, tx, book)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Book updated", zap.String("uuid", book.UUID.String()), zap.String("isbn", book.ISBN))
	return book, nil
}

// DeleteByUUID soft-deletes an active book
func (s *bookService) DeleteByUUID(ctx context.Context, id uuid.UUID) error {
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		book, err := tx.Books().FindByUUID(ctx, id)
		if err != nil {
			return bookLookupError(err, "cannot delete: book with uuid %s not found", id)
		}
		return tx.Books().Delete(ctx, book.ID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Book deleted", zap.String("uuid", id.String()))
	return nil
}

func (in BookInput) applyTo(b *domain.Book, genre *domain.Genre) {
	b.ISBN = in.ISBN
	b.Title = in.Title
	b.Authors = in.Authors
	b.Price = in.Price
	b.Description = in.Description
	b.Publisher = in.Publisher
	b.ImageURL = in.ImageURL
	b.Genre = *genre
}

func activeGenre(ctx context.Context, tx repository.Store, id int64, action string) (*domain.Genre, error) {
	genre, err := tx.Genres().FindByID(ctx, id)
	if err != nil {
		return nil, genreLookupError(err, "%s: genre with id %d not found", action, id)
	}
	return genre, nil
}

func saveBook(ctx context.Context, tx repository.Store, book *domain.Book) error {
	err := tx.Books().Save(ctx, book)
	switch {
	case errors.Is(err, repository.ErrDuplicateKey):
		return domain.Conflict("an active book with isbn %s already exists", book.ISBN)
	case errors.Is(err, repository.ErrGenreNotFound):
		return domain.NotFound("genre with id %d not found", book.Genre.ID)
	}
	return err
}

func bookLookupError(err error, format string, args ...any) error {
	if errors.Is(err, repository.ErrBookNotFound) {
		return domain.NotFound(format, args...)
	}
	return fmt.Errorf("failed to find book: %w", err)
}
