package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a catalog record
type Status string

const (
	StatusActive  Status = "active"
	StatusDeleted Status = "deleted"
)

// IsDeleted reports whether the record has been soft-deleted
func (s Status) IsDeleted() bool {
	return s == StatusDeleted
}

// Book represents a book in the catalog
type Book struct {
	ID          int64           `json:"id" db:"id"`
	UUID        uuid.UUID       `json:"uuid" db:"uuid"`
	ISBN        string          `json:"isbn" db:"isbn"`
	Title       string          `json:"title" db:"title"`
	Authors     string          `json:"authors" db:"authors"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Description string          `json:"description" db:"description"`
	Publisher   string          `json:"publisher" db:"publisher"`
	ImageURL    string          `json:"image_url" db:"image_url"`
	Genre       Genre           `json:"genre" db:"-"`
	Status      Status          `json:"status" db:"status"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// Genre represents a book genre. Name is always canonical and Code is derived from it.
type Genre struct {
	ID        int64     `json:"id" db:"id"`
	Code      string    `json:"code" db:"code"`
	Name      string    `json:"name" db:"name"`
	Status    Status    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
