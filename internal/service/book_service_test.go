package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"mercadolibros/internal/domain"
	"mercadolibros/internal/repository"
	"mercadolibros/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func validInput(isbn string, genreID int64) BookInput {
	return BookInput{
		ISBN:        isbn,
		Title:       "Refactoring",
		Authors:     "Martin Fowler",
		Price:       decimal.RequireFromString("47.50"),
		Description: "Improving the design of existing code.",
		Publisher:   "Addison-Wesley",
		GenreID:     genreID,
		ImageURL:    "https://example.com/covers/" + isbn + ".jpg",
	}
}

type catalog struct {
	store  *memory.Store
	genres GenreService
	books  BookService
}

func newCatalog(t *testing.T) *catalog {
	t.Helper()
	store := memory.NewStore()
	return &catalog{
		store:  store,
		genres: NewGenreService(store, zap.NewNop()),
		books:  NewBookService(store, zap.NewNop()),
	}
}

func (c *catalog) genre(t *testing.T, name string) *domain.Genre {
	t.Helper()
	g, err := c.genres.Create(context.Background(), name)
	require.NoError(t, err)
	return g
}

// Scenario: create genre, create book, delete it, then re-create it with the same ISBN
func TestBookService_DeleteAndRecreateScenario(t *testing.T) {
	c := newCatalog(t)
	ctx := context.Background()

	genre := c.genre(t, "ciencia ficción")
	assert.Equal(t, "CIENCIA_FICCION", genre.Code)
	assert.Equal(t, "Ciencia Ficción", genre.Name)

	created, err := c.books.Create(ctx, validInput("9780134757599", genre.ID))
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.UUID)
	assert.Equal(t, "Ciencia Ficción", created.Genre.Name)

	require.NoError(t, c.books.DeleteByUUID(ctx, created.UUID))

	_, err = c.books.FindByUUID(ctx, created.UUID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	input := validInput("9780134757599", genre.ID)
	input.Title = "Refactoring, 2nd Edition"
	revived, err := c.books.Create(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, created.ID, revived.ID)
	assert.Equal(t, created.UUID, revived.UUID)
	assert.Equal(t, "Refactoring, 2nd Edition", revived.Title)
	assert.Equal(t, domain.StatusActive, revived.Status)

	total, err := c.store.Books().CountIncludingDeleted(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total, "resurrection must not insert a new row")
}

func TestBookService_CreateDuplicateActiveConflicts(t *testing.T) {
	c := newCatalog(t)
	ctx := context.Background()
	genre := c.genre(t, "Programación")

	_, err := c.books.Create(ctx, validInput("9780132350884", genre.ID))
	require.NoError(t, err)
	writes := c.store.Writes

	_, err = c.books.Create(ctx, validInput("9780132350884", genre.ID))
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, writes, c.store.Writes, "a rejected create must not write")
}

func TestBookService_ISBNSeparatorsShareNaturalKey(t *testing.T) {
	c := newCatalog(t)
	ctx := context.Background()
	genre := c.genre(t, "Programación")

	created, err := c.books.Create(ctx, validInput("978-0-13-235088-4", genre.ID))
	require.NoError(t, err)
	assert.Equal(t, "9780132350884", created.ISBN)

	_, err = c.books.Create(ctx, validInput("9780132350884", genre.ID))
	assert.ErrorIs(t, err, domain.ErrConflict)

	found, err := c.books.FindByISBN(ctx, " 978 0132 350884 ")
	require.NoError(t, err)
	assert.Equal(t, created.UUID, found.UUID)

	require.NoError(t, c.books.DeleteByUUID(ctx, created.UUID))
	revived, err := c.books.Create(ctx, validInput("978-0132350884", genre.ID))
	require.NoError(t, err)
	assert.Equal(t, created.UUID, revived.UUID, "the hyphenated form resurrects the deleted row")
}

func TestBookService_CreateRequiresActiveGenre(t *testing.T) {
	c := newCatalog(t)
	ctx := context.Background()

	_, err := c.books.Create(ctx, validInput("9780132350884", 77))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	genre := c.genre(t, "Poesía")
	require.NoError(t, c.genres.DeleteByID(ctx, genre.ID))

	_, err = c.books.Create(ctx, validInput("9780132350884", genre.ID))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBookService_Update(t *testing.T) {
	c := newCatalog(t)
	ctx := context.Background()
	genre := c.genre(t, "Programación")
	other := c.genre(t, "Ensayo")

	book, err := c.books.Create(ctx, validInput("9780132350884", genre.ID))
	require.NoError(t, err)
	taken, err := c.books.Create(ctx, validInput("9780134757599", genre.ID))
	require.NoError(t, err)
	gone, err := c.books.Create(ctx, validInput("9780201633610", genre.ID))
	require.NoError(t, err)
	require.NoError(t, c.books.DeleteByUUID(ctx, gone.UUID))

	t.Run("unchanged isbn succeeds", func(t *testing.T) {
		input := validInput(book.ISBN, other.ID)
		input.Price = decimal.RequireFromString("12.00")

		updated, err := c.books.Update(ctx, book.UUID, input)
		require.NoError(t, err)
		assert.Equal(t, book.ID, updated.ID)
		assert.Equal(t, "Ensayo", updated.Genre.Name)
		assert.True(t, updated.Price.Equal(decimal.NewFromInt(12)))
	})

	t.Run("isbn of an active book conflicts", func(t *testing.T) {
		_, err := c.books.Update(ctx, book.UUID, validInput(taken.ISBN, genre.ID))
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("isbn of a deleted book conflicts", func(t *testing.T) {
		_, err := c.books.Update(ctx, book.UUID, validInput(gone.ISBN, genre.ID))
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("new isbn succeeds", func(t *testing.T) {
		updated, err := c.books.Update(ctx, book.UUID, validInput("9780262033848", genre.ID))
		require.NoError(t, err)
		assert.Equal(t, "9780262033848", updated.ISBN)
		assert.Equal(t, book.UUID, updated.UUID)
	})

	t.Run("unknown uuid is not found", func(t *testing.T) {
		_, err := c.books.Update(ctx, uuid.New(), validInput("9780262033848", genre.ID))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("unknown genre is not found", func(t *testing.T) {
		_, err := c.books.Update(ctx, book.UUID, validInput(book.ISBN, 9999))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestBookService_DeleteTwiceIsNotFound(t *testing.T) {
	c := newCatalog(t)
	ctx := context.Background()
	genre := c.genre(t, "Programación")

	book, err := c.books.Create(ctx, validInput("9780132350884", genre.ID))
	require.NoError(t, err)

	require.NoError(t, c.books.DeleteByUUID(ctx, book.UUID))
	assert.ErrorIs(t, c.books.DeleteByUUID(ctx, book.UUID), domain.ErrNotFound)
	assert.ErrorIs(t, c.books.DeleteByUUID(ctx, uuid.New()), domain.ErrNotFound)

	_, err = c.books.FindByISBN(ctx, book.ISBN)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBookService_FindByCriteria(t *testing.T) {
	c := newCatalog(t)
	ctx := context.Background()
	fantasy := c.genre(t, "Fantasía")
	programming := c.genre(t, "Programación")

	hobbit := validInput("9780261103344", fantasy.ID)
	hobbit.Title, hobbit.Authors, hobbit.Publisher = "The Hobbit", "J. R. R. Tolkien", "HarperCollins"
	rings := validInput("9780261103252", fantasy.ID)
	rings.Title, rings.Authors, rings.Publisher = "The Lord of the Rings", "J. R. R. Tolkien", "HarperCollins"
	clean := validInput("9780132350884", programming.ID)
	clean.Title, clean.Authors, clean.Publisher = "Clean Code", "Robert C. Martin", "Prentice Hall"

	for _, in := range []BookInput{hobbit, rings, clean} {
		_, err := c.books.Create(ctx, in)
		require.NoError(t, err)
	}

	all := repository.Pageable{Size: 20}

	page, err := c.books.FindByCriteria(ctx, BookCriteria{}, all)
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.TotalElements)

	page, err = c.books.FindByCriteria(ctx, BookCriteria{Genre: "fantasía"}, all)
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.TotalElements)
	for _, b := range page.Items {
		assert.Equal(t, "Fantasía", b.Genre.Name)
	}

	page, err = c.books.FindByCriteria(ctx, BookCriteria{Title: "the", Authors: "TOLKIEN", Publisher: "harper"}, repository.Pageable{
		Size: 20,
		Sort: []repository.SortOrder{{Property: "title", Direction: repository.Desc}},
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "The Lord of the Rings", page.Items[0].Title)

	page, err = c.books.FindByCriteria(ctx, BookCriteria{Genre: "   "}, all)
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.TotalElements, "blank filters impose no constraint")
}

func TestBookService_FindAllPagination(t *testing.T) {
	c := newCatalog(t)
	ctx := context.Background()
	genre := c.genre(t, "Programación")

	for _, isbn := range []string{"9780132350884", "9780134757599", "9780201633610"} {
		_, err := c.books.Create(ctx, validInput(isbn, genre.ID))
		require.NoError(t, err)
	}

	first, err := c.books.FindAll(ctx, repository.Pageable{Page: 0, Size: 1})
	require.NoError(t, err)
	assert.Len(t, first.Items, 1)
	assert.Equal(t, 3, first.TotalPages())
	assert.False(t, first.IsLast())

	last, err := c.books.FindAll(ctx, repository.Pageable{Page: 2, Size: 1})
	require.NoError(t, err)
	assert.Len(t, last.Items, 1)
	assert.True(t, last.IsLast())
}

// Feature: book-catalog, Property 6: create reconciles against active and deleted ISBNs
func TestProperty_CreateReconciliation(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("create inserts, rejects or resurrects by ISBN state", prop.ForAll(
		func(n int, deleteMask uint8) bool {
			c := newCatalog(t)
			ctx := context.Background()
			genre := c.genre(t, "Ensayo")

			originals := make([]*domain.Book, n)
			for i := range originals {
				b, err := c.books.Create(ctx, validInput(fmt.Sprintf("978%010d", i), genre.ID))
				if err != nil {
					return false
				}
				if deleteMask&(1<<i) != 0 {
					if err := c.books.DeleteByUUID(ctx, b.UUID); err != nil {
						return false
					}
				}
				originals[i] = b
			}

			for i, orig := range originals {
				again, err := c.books.Create(ctx, validInput(orig.ISBN, genre.ID))
				if deleteMask&(1<<i) != 0 {
					if err != nil || again.ID != orig.ID || again.UUID != orig.UUID {
						t.Logf("FAIL: deleted isbn %s was not resurrected: %v", orig.ISBN, err)
						return false
					}
				} else if !errors.Is(err, domain.ErrConflict) {
					t.Logf("FAIL: active isbn %s did not conflict: %v", orig.ISBN, err)
					return false
				}
			}

			total, _ := c.store.Books().CountIncludingDeleted(ctx)
			return total == int64(n)
		},
		gen.IntRange(1, 8),
		gen.UInt8(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
