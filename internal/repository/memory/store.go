// Package memory provides a map backed repository.Store for tests. It enforces
// the same unique keys and soft-delete filters as the Postgres schema.
package memory

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"mercadolibros/internal/domain"
	"mercadolibros/internal/repository"

	"github.com/google/uuid"
)

type Store struct {
	mu     sync.Mutex
	books  map[int64]*domain.Book
	genres map[int64]*domain.Genre
	nextID int64

	// Writes counts successful Save, SaveAll and Delete calls
	Writes int
}

func NewStore() *Store {
	return &Store{
		books:  make(map[int64]*domain.Book),
		genres: make(map[int64]*domain.Genre),
	}
}

func (s *Store) Books() repository.BookRepository   { return bookRepo{s} }
func (s *Store) Genres() repository.GenreRepository { return genreRepo{s} }

// WithTx serializes fn. Writes are not rolled back on error.
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Store) error) error {
	return fn(s)
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

type genreRepo struct{ s *Store }

func (r genreRepo) find(match func(*domain.Genre) bool) (*domain.Genre, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, g := range r.s.genres {
		if match(g) {
			cp := *g
			return &cp, nil
		}
	}
	return nil, repository.ErrGenreNotFound
}

func (r genreRepo) FindByID(_ context.Context, id int64) (*domain.Genre, error) {
	return r.find(func(g *domain.Genre) bool { return g.ID == id && !g.Status.IsDeleted() })
}

func (r genreRepo) FindByCode(_ context.Context, code string) (*domain.Genre, error) {
	return r.find(func(g *domain.Genre) bool { return g.Code == code && !g.Status.IsDeleted() })
}

func (r genreRepo) FindByName(_ context.Context, name string) (*domain.Genre, error) {
	return r.find(func(g *domain.Genre) bool { return g.Name == name && !g.Status.IsDeleted() })
}

func (r genreRepo) FindByCodeIncludingDeleted(_ context.Context, code string) (*domain.Genre, error) {
	return r.find(func(g *domain.Genre) bool { return g.Code == code })
}

var genreOrder = map[string]func(a, b *domain.Genre) int{
	"id":   func(a, b *domain.Genre) int { return cmp.Compare(a.ID, b.ID) },
	"code": func(a, b *domain.Genre) int { return strings.Compare(a.Code, b.Code) },
	"name": func(a, b *domain.Genre) int { return strings.Compare(a.Name, b.Name) },
}

func (r genreRepo) FindAll(_ context.Context, p repository.Pageable) (*repository.Page[domain.Genre], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var matched []*domain.Genre
	for _, g := range r.s.genres {
		if !g.Status.IsDeleted() {
			matched = append(matched, g)
		}
	}
	if err := sortBy(matched, p.Sort, genreOrder, func(g *domain.Genre) int64 { return g.ID }); err != nil {
		return nil, err
	}
	return slice(matched, p), nil
}

func (r genreRepo) Save(_ context.Context, genre *domain.Genre) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, g := range r.s.genres {
		if g.ID != genre.ID && (g.Code == genre.Code || g.Name == genre.Name) {
			return fmt.Errorf("%w: uq_genres_code", repository.ErrDuplicateKey)
		}
	}
	if genre.Status == "" {
		genre.Status = domain.StatusActive
	}

	now := time.Now().UTC()
	if genre.ID == 0 {
		genre.ID = r.s.id()
		genre.CreatedAt = now
	} else if _, ok := r.s.genres[genre.ID]; !ok {
		return repository.ErrGenreNotFound
	}
	genre.UpdatedAt = now

	cp := *genre
	r.s.genres[genre.ID] = &cp
	r.s.Writes++
	return nil
}

func (r genreRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	g, ok := r.s.genres[id]
	if !ok {
		return repository.ErrGenreNotFound
	}
	g.Status = domain.StatusDeleted
	r.s.Writes++
	return nil
}

func (r genreRepo) CountIncludingDeleted(context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.genres)), nil
}

type bookRepo struct{ s *Store }

// load attaches the current genre row, as the SQL join does
func (r bookRepo) load(b *domain.Book) *domain.Book {
	cp := *b
	if g, ok := r.s.genres[b.Genre.ID]; ok {
		cp.Genre = *g
	}
	return &cp
}

func (r bookRepo) find(match func(*domain.Book) bool) (*domain.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.books {
		if match(b) {
			return r.load(b), nil
		}
	}
	return nil, repository.ErrBookNotFound
}

func (r bookRepo) FindByUUID(_ context.Context, id uuid.UUID) (*domain.Book, error) {
	return r.find(func(b *domain.Book) bool { return b.UUID == id && !b.Status.IsDeleted() })
}

func (r bookRepo) FindByISBN(_ context.Context, isbn string) (*domain.Book, error) {
	return r.find(func(b *domain.Book) bool { return b.ISBN == isbn && !b.Status.IsDeleted() })
}

func (r bookRepo) FindByISBNIncludingDeleted(_ context.Context, isbn string) (*domain.Book, error) {
	return r.find(func(b *domain.Book) bool { return b.ISBN == isbn })
}

var bookOrder = map[string]func(a, b *domain.Book) int{
	"id":         func(a, b *domain.Book) int { return cmp.Compare(a.ID, b.ID) },
	"uuid":       func(a, b *domain.Book) int { return bytes.Compare(a.UUID[:], b.UUID[:]) },
	"isbn":       func(a, b *domain.Book) int { return strings.Compare(a.ISBN, b.ISBN) },
	"title":      func(a, b *domain.Book) int { return strings.Compare(a.Title, b.Title) },
	"authors":    func(a, b *domain.Book) int { return strings.Compare(a.Authors, b.Authors) },
	"price":      func(a, b *domain.Book) int { return a.Price.Cmp(b.Price) },
	"publisher":  func(a, b *domain.Book) int { return strings.Compare(a.Publisher, b.Publisher) },
	"createdAt":  func(a, b *domain.Book) int { return a.CreatedAt.Compare(b.CreatedAt) },
	"genre":      func(a, b *domain.Book) int { return strings.Compare(a.Genre.Name, b.Genre.Name) },
	"genre.id":   func(a, b *domain.Book) int { return cmp.Compare(a.Genre.ID, b.Genre.ID) },
	"genre.name": func(a, b *domain.Book) int { return strings.Compare(a.Genre.Name, b.Genre.Name) },
	"genre.code": func(a, b *domain.Book) int { return strings.Compare(a.Genre.Code, b.Genre.Code) },
}

func containsFold(s, substr string) bool {
	return substr == "" || strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func (r bookRepo) Search(_ context.Context, c repository.BookCriteria, p repository.Pageable) (*repository.Page[domain.Book], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var matched []*domain.Book
	for _, b := range r.s.books {
		b = r.load(b)
		if b.Status.IsDeleted() ||
			!containsFold(b.Title, c.Title) ||
			!containsFold(b.Authors, c.Authors) ||
			!containsFold(b.Publisher, c.Publisher) ||
			(c.Genre != "" && b.Genre.Name != c.Genre) {
			continue
		}
		matched = append(matched, b)
	}
	if err := sortBy(matched, p.Sort, bookOrder, func(b *domain.Book) int64 { return b.ID }); err != nil {
		return nil, err
	}
	return slice(matched, p), nil
}

func (r bookRepo) saveLocked(book *domain.Book) error {
	for _, b := range r.s.books {
		if b.ID != book.ID && (b.ISBN == book.ISBN || b.UUID == book.UUID) {
			return fmt.Errorf("%w: uq_books_isbn", repository.ErrDuplicateKey)
		}
	}
	if _, ok := r.s.genres[book.Genre.ID]; !ok {
		return fmt.Errorf("%w: fk_books_genre", repository.ErrGenreNotFound)
	}
	if book.Status == "" {
		book.Status = domain.StatusActive
	}

	now := time.Now().UTC()
	if book.ID == 0 {
		book.ID = r.s.id()
		book.CreatedAt = now
	} else if _, ok := r.s.books[book.ID]; !ok {
		return repository.ErrBookNotFound
	}
	book.UpdatedAt = now

	cp := *book
	r.s.books[book.ID] = &cp
	r.s.Writes++
	return nil
}

func (r bookRepo) Save(_ context.Context, book *domain.Book) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.saveLocked(book)
}

func (r bookRepo) SaveAll(_ context.Context, books []*domain.Book) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range books {
		if err := r.saveLocked(b); err != nil {
			return err
		}
	}
	return nil
}

func (r bookRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.books[id]
	if !ok {
		return repository.ErrBookNotFound
	}
	b.Status = domain.StatusDeleted
	r.s.Writes++
	return nil
}

func (r bookRepo) CountIncludingDeleted(context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.books)), nil
}

func (r bookRepo) CountByGenreID(_ context.Context, genreID int64, includeDeleted bool) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for _, b := range r.s.books {
		if b.Genre.ID == genreID && (includeDeleted || !b.Status.IsDeleted()) {
			n++
		}
	}
	return n, nil
}

func sortBy[T any](items []*T, orders []repository.SortOrder, cmps map[string]func(a, b *T) int, id func(*T) int64) error {
	for _, o := range orders {
		if _, ok := cmps[o.Property]; !ok {
			return fmt.Errorf("%w: %s", repository.ErrInvalidSort, o.Property)
		}
	}

	slices.SortFunc(items, func(a, b *T) int {
		for _, o := range orders {
			c := cmps[o.Property](a, b)
			if o.Direction == repository.Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return cmp.Compare(id(a), id(b))
	})
	return nil
}

func slice[T any](items []*T, p repository.Pageable) *repository.Page[T] {
	total := int64(len(items))
	start := min(p.Offset(), len(items))
	end := min(start+p.Size, len(items))

	out := make([]T, 0, end-start)
	for _, it := range items[start:end] {
		out = append(out, *it)
	}
	return repository.NewPage(out, p, total)
}
