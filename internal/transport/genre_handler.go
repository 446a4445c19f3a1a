package transport

import (
	"net/http"
	"strconv"
	"strings"

	"mercadolibros/internal/domain"
	"mercadolibros/internal/middleware"
	"mercadolibros/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// GenreRequest is the payload of genre create and update
type GenreRequest struct {
	Name string `json:"name" validate:"notblank,max=100"`
}

// GenreResponse is the public view of a genre
type GenreResponse struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

func toGenreResponse(g domain.Genre) GenreResponse {
	return GenreResponse{ID: g.ID, Code: g.Code, Name: g.Name}
}

// GenreHandler handles HTTP requests for genres
type GenreHandler struct {
	genreService service.GenreService
	logger       *zap.Logger
}

// NewGenreHandler creates a new GenreHandler
func NewGenreHandler(genreService service.GenreService, logger *zap.Logger) *GenreHandler {
	return &GenreHandler{
		genreService: genreService,
		logger:       logger,
	}
}

// RegisterRoutes registers all genre routes. writeLimiter, when non-nil, wraps the mutating routes.
func (h *GenreHandler) RegisterRoutes(r chi.Router, writeLimiter func(http.Handler) http.Handler) {
	r.Route("/api/genres", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/search", h.SearchByName)
		r.Get("/code/{code}", h.GetByCode)
		r.Get("/{id}", h.GetByID)

		r.Group(func(r chi.Router) {
			if writeLimiter != nil {
				r.Use(writeLimiter)
			}
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})
	})
}

// List handles GET /api/genres
func (h *GenreHandler) List(w http.ResponseWriter, r *http.Request) {
	pageable, err := parsePageable(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.genreService.FindAll(r.Context(), pageable)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, NewPagedResponse(page, toGenreResponse))
}

// GetByID handles GET /api/genres/{id}
func (h *GenreHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := genreID(w, r)
	if !ok {
		return
	}
	h.respondWithGenre(w, r)(h.genreService.FindByID(r.Context(), id))
}

// GetByCode handles GET /api/genres/code/{code}
func (h *GenreHandler) GetByCode(w http.ResponseWriter, r *http.Request) {
	h.respondWithGenre(w, r)(h.genreService.FindByCode(r.Context(), chi.URLParam(r, "code")))
}

// SearchByName handles GET /api/genres/search?name=
func (h *GenreHandler) SearchByName(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if strings.TrimSpace(name) == "" {
		middleware.RespondWithError(w, http.StatusBadRequest, "query parameter name is required")
		return
	}
	h.respondWithGenre(w, r)(h.genreService.FindByName(r.Context(), name))
}

// Create handles POST /api/genres
func (h *GenreHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req GenreRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Genre validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	genre, err := h.genreService.Create(r.Context(), req.Name)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Location", "/api/genres/"+strconv.FormatInt(genre.ID, 10))
	middleware.RespondWithJSON(w, http.StatusCreated, toGenreResponse(*genre))
}

// Update handles PUT /api/genres/{id}
func (h *GenreHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := genreID(w, r)
	if !ok {
		return
	}

	var req GenreRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Genre validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	h.respondWithGenre(w, r)(h.genreService.Update(r.Context(), id, req.Name))
}

// Delete handles DELETE /api/genres/{id}
func (h *GenreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := genreID(w, r)
	if !ok {
		return
	}

	if err := h.genreService.DeleteByID(r.Context(), id); err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *GenreHandler) respondWithGenre(w http.ResponseWriter, r *http.Request) func(*domain.Genre, error) {
	return func(genre *domain.Genre, err error) {
		if err != nil {
			respondWithServiceError(w, r, h.logger, err)
			return
		}
		middleware.RespondWithJSON(w, http.StatusOK, toGenreResponse(*genre))
	}
}

func genreID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid genre id: "+raw)
		return 0, false
	}
	return id, true
}
