package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"mercadolibros/internal/domain"
	"mercadolibros/internal/normalize"
	"mercadolibros/internal/repository"
	"mercadolibros/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

//go:embed data/books.json
var defaultFixture []byte

// Record is one book of the seed fixture. Genre is a free-form label.
type Record struct {
	ISBN        string          `json:"isbn"`
	Title       string          `json:"title"`
	Authors     string          `json:"authors"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Publisher   string          `json:"publisher"`
	Genre       string          `json:"genre"`
	ImageURL    string          `json:"imageUrl"`
}

// Loader fills an empty catalog from a JSON fixture
type Loader struct {
	store  repository.Store
	genres service.GenreService
	logger *zap.Logger
	file   string
}

// NewLoader creates a Loader. An empty file selects the embedded fixture.
func NewLoader(store repository.Store, genres service.GenreService, logger *zap.Logger, file string) *Loader {
	return &Loader{store: store, genres: genres, logger: logger, file: file}
}

// Run seeds the catalog when no book row exists, deleted rows included
func (l *Loader) Run(ctx context.Context) error {
	count, err := l.store.Books().CountIncludingDeleted(ctx)
	if err != nil {
		return fmt.Errorf("failed to count books: %w", err)
	}
	if count > 0 {
		l.logger.Info("Catalog already has books, skipping seed", zap.Int64("books", count))
		return nil
	}

	records, err := l.readFixture()
	if err != nil {
		return err
	}

	l.logger.Info("Seeding catalog", zap.String("source", l.source()), zap.Int("records", len(records)))

	books, err := l.toBooks(ctx, records)
	if err != nil {
		return err
	}

	err = l.store.WithTx(ctx, func(tx repository.Store) error {
		return tx.Books().SaveAll(ctx, books)
	})
	if err != nil {
		return fmt.Errorf("failed to save seed books: %w", err)
	}

	l.logger.Info("Seed completed", zap.Int("books", len(books)))
	return nil
}

func (l *Loader) source() string {
	if l.file == "" {
		return "embedded"
	}
	return l.file
}

func (l *Loader) readFixture() ([]Record, error) {
	data := defaultFixture
	if l.file != "" {
		var err error
		if data, err = os.ReadFile(l.file); err != nil {
			return nil, fmt.Errorf("failed to read seed file: %w", err)
		}
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode seed fixture %s: %w", l.source(), err)
	}
	return records, nil
}

// toBooks resolves each label to a genre once per canonical code
func (l *Loader) toBooks(ctx context.Context, records []Record) ([]*domain.Book, error) {
	genres := make(map[string]*domain.Genre)
	books := make([]*domain.Book, 0, len(records))

	for _, rec := range records {
		code := normalize.GenerateCode(normalize.FormatName(rec.Genre))
		genre, ok := genres[code]
		if !ok {
			var err error
			if genre, err = l.genres.Ensure(ctx, rec.Genre); err != nil {
				return nil, fmt.Errorf("failed to ensure genre %q for isbn %s: %w", rec.Genre, rec.ISBN, err)
			}
			genres[code] = genre
		}

		books = append(books, &domain.Book{
			UUID:        uuid.New(),
			ISBN:        normalize.ISBN(rec.ISBN),
			Title:       rec.Title,
			Authors:     rec.Authors,
			Price:       rec.Price,
			Description: rec.Description,
			Publisher:   rec.Publisher,
			ImageURL:    rec.ImageURL,
			Genre:       *genre,
			Status:      domain.StatusActive,
		})
	}

	l.logger.Debug("Seed genres resolved", zap.Int("genres", len(genres)))
	return books, nil
}
