package service

import (
	"context"
	"errors"
	"fmt"

	"mercadolibros/internal/domain"
	"mercadolibros/internal/normalize"
	"mercadolibros/internal/repository"

	"go.uber.org/zap"
)

// GenreService defines the interface for genre business logic
type GenreService interface {
	FindAll(ctx context.Context, pageable repository.Pageable) (*repository.Page[domain.Genre], error)
	FindByID(ctx context.Context, id int64) (*domain.Genre, error)
	FindByCode(ctx context.Context, code string) (*domain.Genre, error)
	FindByName(ctx context.Context, name string) (*domain.Genre, error)
	Create(ctx context.Context, name string) (*domain.Genre, error)
	Update(ctx context.Context, id int64, name string) (*domain.Genre, error)
	DeleteByID(ctx context.Context, id int64) error
	// Ensure returns the active genre for name, creating or resurrecting it when needed
	Ensure(ctx context.Context, name string) (*domain.Genre, error)
}

type genreService struct {
	store  repository.Store
	logger *zap.Logger
}

// NewGenreService creates a new instance of GenreService
func NewGenreService(store repository.Store, logger *zap.Logger) GenreService {
	return &genreService{store: store, logger: logger}
}

func (s *genreService) FindAll(ctx context.Context, pageable repository.Pageable) (*repository.Page[domain.Genre], error) {
	page, err := s.store.Genres().FindAll(ctx, pageable)
	if err != nil {
		return nil, listError(err, "genres")
	}
	return page, nil
}

func (s *genreService) FindByID(ctx context.Context, id int64) (*domain.Genre, error) {
	genre, err := s.store.Genres().FindByID(ctx, id)
	if err != nil {
		return nil, genreLookupError(err, "genre with id %d not found", id)
	}
	return genre, nil
}

func (s *genreService) FindByCode(ctx context.Context, code string) (*domain.Genre, error) {
	code = normalize.GenerateCode(code)
	genre, err := s.store.Genres().FindByCode(ctx, code)
	if err != nil {
		return nil, genreLookupError(err, "genre with code %s not found", code)
	}
	return genre, nil
}

func (s *genreService) FindByName(ctx context.Context, name string) (*domain.Genre, error) {
	name = normalize.FormatName(name)
	genre, err := s.store.Genres().FindByName(ctx, name)
	if err != nil {
		return nil, genreLookupError(err, "genre with name %q not found", name)
	}
	return genre, nil
}

// Create inserts a new genre, or resurrects the soft-deleted genre holding the same code
func (s *genreService) Create(ctx context.Context, name string) (*domain.Genre, error) {
	name, code, err := canonicalGenre(name)
	if err != nil {
		return nil, err
	}

	var genre *domain.Genre
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		existing, err := tx.Genres().FindByCodeIncludingDeleted(ctx, code)
		switch {
		case errors.Is(err, repository.ErrGenreNotFound):
			genre = &domain.Genre{Code: code, Name: name, Status: domain.StatusActive}
		case err != nil:
			return fmt.Errorf("failed to look up genre: %w", err)
		case !existing.Status.IsDeleted():
			return domain.Conflict("an active genre with code %s and name %q already exists", code, name)
		default:
			genre = existing
			genre.Code = code
			genre.Name = name
			genre.Status = domain.StatusActive
		}

		return saveGenre(ctx, tx, genre)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Genre saved",
		zap.Int64("genre_id", genre.ID),
		zap.String("code", genre.Code),
	)
	return genre, nil
}

// Update renames a genre. The new code may not belong to any other genre, deleted or not.
func (s *genreService) Update(ctx context.Context, id int64, name string) (*domain.Genre, error) {
	var genre *domain.Genre
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		current, err := tx.Genres().FindByID(ctx, id)
		if err != nil {
			return genreLookupError(err, "genre with id %d not found", id)
		}

		newName, code, err := canonicalGenre(name)
		if err != nil {
			return err
		}

		if newName != current.Name {
			holder, err := tx.Genres().FindByCodeIncludingDeleted(ctx, code)
			if err != nil && !errors.Is(err, repository.ErrGenreNotFound) {
				return fmt.Errorf("failed to look up genre: %w", err)
			}
			if holder != nil && holder.ID != id {
				return domain.Conflict("the name %q already belongs to another genre", newName)
			}
		}

		current.Name = newName
		current.Code = code
		genre = current
		return saveGenre(ctx, tx, genre)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Genre updated", zap.Int64("genre_id", genre.ID), zap.String("code", genre.Code))
	return genre, nil
}

// DeleteByID soft-deletes a genre that no active book references
func (s *genreService) DeleteByID(ctx context.Context, id int64) error {
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		genre, err := tx.Genres().FindByID(ctx, id)
		if err != nil {
			return genreLookupError(err, "cannot delete: genre with id %d not found", id)
		}

		inUse, err := tx.Books().CountByGenreID(ctx, id, false)
		if err != nil {
			return err
		}
		if inUse > 0 {
			return domain.Conflict("cannot delete genre %q: %d active books reference it", genre.Name, inUse)
		}

		return tx.Genres().Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Genre deleted", zap.Int64("genre_id", id))
	return nil
}

func (s *genreService) Ensure(ctx context.Context, name string) (*domain.Genre, error) {
	_, code, err := canonicalGenre(name)
	if err != nil {
		return nil, err
	}

	genre, err := s.store.Genres().FindByCode(ctx, code)
	if err == nil {
		return genre, nil
	}
	if !errors.Is(err, repository.ErrGenreNotFound) {
		return nil, fmt.Errorf("failed to look up genre: %w", err)
	}
	return s.Create(ctx, name)
}

func canonicalGenre(raw string) (name, code string, err error) {
	name = normalize.FormatName(raw)
	code = normalize.GenerateCode(name)
	if code == "" {
		return "", "", domain.Invalid("genre name %q must contain at least one letter or digit", raw)
	}
	return name, code, nil
}

func saveGenre(ctx context.Context, tx repository.Store, genre *domain.Genre) error {
	err := tx.Genres().Save(ctx, genre)
	if errors.Is(err, repository.ErrDuplicateKey) {
		return domain.Conflict("an active genre with code %s and name %q already exists", genre.Code, genre.Name)
	}
	return err
}

func genreLookupError(err error, format string, args ...any) error {
	if errors.Is(err, repository.ErrGenreNotFound) {
		return domain.NotFound(format, args...)
	}
	return fmt.Errorf("failed to find genre: %w", err)
}

func listError(err error, what string) error {
	if errors.Is(err, repository.ErrInvalidSort) {
		return domain.Invalid("%s", err.Error())
	}
	return fmt.Errorf("failed to list %s: %w", what, err)
}
