package transport

import (
	"encoding/json"
	"net/http"

	"mercadolibros/internal/domain"
	"mercadolibros/internal/middleware"
	"mercadolibros/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BookRequest is the payload of book create and update
type BookRequest struct {
	ISBN        string           `json:"isbn" validate:"notblank,isbn"`
	Title       string           `json:"title" validate:"notblank,max=255"`
	Authors     string           `json:"authors" validate:"notblank,max=255"`
	Price       *decimal.Decimal `json:"price" validate:"required,price"`
	Description string           `json:"description" validate:"notblank,min=20,max=5000"`
	Publisher   string           `json:"publisher" validate:"notblank,max=255"`
	GenreID     int64            `json:"genreId" validate:"required,gt=0"`
	ImageURL    string           `json:"imageUrl" validate:"notblank,url,max=500"`
}

func (req BookRequest) toInput() service.BookInput {
	return service.BookInput{
		ISBN:        req.ISBN,
		Title:       req.Title,
		Authors:     req.Authors,
		Price:       *req.Price,
		Description: req.Description,
		Publisher:   req.Publisher,
		GenreID:     req.GenreID,
		ImageURL:    req.ImageURL,
	}
}

// BookResponse is the public view of a book. Genre is the genre's display name.
type BookResponse struct {
	UUID        string      `json:"uuid"`
	ISBN        string      `json:"isbn"`
	Title       string      `json:"title"`
	Authors     string      `json:"authors"`
	Price       json.Number `json:"price"`
	Description string      `json:"description"`
	Publisher   string      `json:"publisher"`
	Genre       string      `json:"genre"`
	ImageURL    string      `json:"imageUrl"`
}

func toBookResponse(b domain.Book) BookResponse {
	return BookResponse{
		UUID:        b.UUID.String(),
		ISBN:        b.ISBN,
		Title:       b.Title,
		Authors:     b.Authors,
		Price:       json.Number(b.Price.StringFixed(2)),
		Description: b.Description,
		Publisher:   b.Publisher,
		Genre:       b.Genre.Name,
		ImageURL:    b.ImageURL,
	}
}

// BookHandler handles HTTP requests for books
type BookHandler struct {
	bookService service.BookService
	logger      *zap.Logger
}

// NewBookHandler creates a new BookHandler
func NewBookHandler(bookService service.BookService, logger *zap.Logger) *BookHandler {
	return &BookHandler{
		bookService: bookService,
		logger:      logger,
	}
}

// RegisterRoutes registers all book routes. writeLimiter, when non-nil, wraps the mutating routes.
func (h *BookHandler) RegisterRoutes(r chi.Router, writeLimiter func(http.Handler) http.Handler) {
	r.Route("/api/books", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/search", h.Search)
		r.Get("/isbn/{isbn}", h.GetByISBN)
		r.Get("/{uuid}", h.GetByUUID)

		r.Group(func(r chi.Router) {
			if writeLimiter != nil {
				r.Use(writeLimiter)
			}
			r.Post("/", h.Create)
			r.Put("/{uuid}", h.Update)
			r.Delete("/{uuid}", h.Delete)
		})
	})
}

// List handles GET /api/books
func (h *BookHandler) List(w http.ResponseWriter, r *http.Request) {
	pageable, err := parsePageable(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.bookService.FindAll(r.Context(), pageable)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, NewPagedResponse(page, toBookResponse))
}

// Search handles GET /api/books/search
func (h *BookHandler) Search(w http.ResponseWriter, r *http.Request) {
	pageable, err := parsePageable(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	query := r.URL.Query()
	criteria := service.BookCriteria{
		Title:     query.Get("title"),
		Authors:   query.Get("authors"),
		Genre:     query.Get("genre"),
		Publisher: query.Get("publisher"),
	}

	page, err := h.bookService.FindByCriteria(r.Context(), criteria, pageable)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, NewPagedResponse(page, toBookResponse))
}

// GetByUUID handles GET /api/books/{uuid}
func (h *BookHandler) GetByUUID(w http.ResponseWriter, r *http.Request) {
	id, ok := bookUUID(w, r)
	if !ok {
		return
	}

	book, err := h.bookService.FindByUUID(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toBookResponse(*book))
}

// GetByISBN handles GET /api/books/isbn/{isbn}
func (h *BookHandler) GetByISBN(w http.ResponseWriter, r *http.Request) {
	book, err := h.bookService.FindByISBN(r.Context(), chi.URLParam(r, "isbn"))
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toBookResponse(*book))
}

// Create handles POST /api/books
func (h *BookHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req BookRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Book validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	book, err := h.bookService.Create(r.Context(), req.toInput())
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Location", "/api/books/"+book.UUID.String())
	middleware.RespondWithJSON(w, http.StatusCreated, toBookResponse(*book))
}

// Update handles PUT /api/books/{uuid}
func (h *BookHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := bookUUID(w, r)
	if !ok {
		return
	}

	var req BookRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Book validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	book, err := h.bookService.Update(r.Context(), id, req.toInput())
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toBookResponse(*book))
}

// Delete handles DELETE /api/books/{uuid}
func (h *BookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := bookUUID(w, r)
	if !ok {
		return
	}

	if err := h.bookService.DeleteByUUID(r.Context(), id); err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func bookUUID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "uuid")
	id, err := uuid.Parse(raw)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid book uuid: "+raw)
		return uuid.Nil, false
	}
	return id, true
}
