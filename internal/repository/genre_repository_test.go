package repository

import (
	"context"
	"testing"

	"mercadolibros/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createGenre(t *testing.T, repo GenreRepository, code, name string) *domain.Genre {
	t.Helper()
	genre := &domain.Genre{Code: code, Name: name}
	require.NoError(t, repo.Save(context.Background(), genre))
	require.NotZero(t, genre.ID)
	return genre
}

func TestGenreRepository_SaveAndFind(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	repo := NewGenreRepository(testDB)

	genre := createGenre(t, repo, "CIENCIA_FICCION", "Ciencia Ficción")
	assert.Equal(t, domain.StatusActive, genre.Status)

	byID, err := repo.FindByID(ctx, genre.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ciencia Ficción", byID.Name)

	byCode, err := repo.FindByCode(ctx, "CIENCIA_FICCION")
	require.NoError(t, err)
	assert.Equal(t, genre.ID, byCode.ID)

	byName, err := repo.FindByName(ctx, "Ciencia Ficción")
	require.NoError(t, err)
	assert.Equal(t, genre.ID, byName.ID)
}

func TestGenreRepository_DuplicateCode(t *testing.T) {
	requireDB(t)
	repo := NewGenreRepository(testDB)

	createGenre(t, repo, "TERROR", "Terror")
	err := repo.Save(context.Background(), &domain.Genre{Code: "TERROR", Name: "Terror!"})
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestGenreRepository_SoftDelete(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	repo := NewGenreRepository(testDB)

	genre := createGenre(t, repo, "POESIA", "Poesía")
	require.NoError(t, repo.Delete(ctx, genre.ID))

	_, err := repo.FindByID(ctx, genre.ID)
	assert.ErrorIs(t, err, ErrGenreNotFound)
	_, err = repo.FindByCode(ctx, "POESIA")
	assert.ErrorIs(t, err, ErrGenreNotFound)

	deleted, err := repo.FindByCodeIncludingDeleted(ctx, "POESIA")
	require.NoError(t, err)
	assert.True(t, deleted.Status.IsDeleted())

	count, err := repo.CountIncludingDeleted(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	assert.ErrorIs(t, repo.Delete(ctx, 9999), ErrGenreNotFound)
}

func TestGenreRepository_FindAllPagedAndSorted(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	repo := NewGenreRepository(testDB)

	createGenre(t, repo, "BIOGRAFIA", "Biografía")
	createGenre(t, repo, "ARTE", "Arte")
	hidden := createGenre(t, repo, "CUENTOS", "Cuentos")
	createGenre(t, repo, "DRAMA", "Drama")
	require.NoError(t, repo.Delete(ctx, hidden.ID))

	page, err := repo.FindAll(ctx, Pageable{Page: 0, Size: 2, Sort: []SortOrder{{Property: "name", Direction: Desc}}})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.TotalElements)
	assert.Equal(t, 2, page.TotalPages())
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Drama", page.Items[0].Name)
	assert.Equal(t, "Biografía", page.Items[1].Name)

	_, err = repo.FindAll(ctx, Pageable{Size: 2, Sort: []SortOrder{{Property: "status"}}})
	assert.ErrorIs(t, err, ErrInvalidSort)
}
