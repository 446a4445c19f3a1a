package repository

import (
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 2000
)

var ErrInvalidSort = errors.New("invalid sort property")

// Direction represents the sort direction
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// SortOrder is one key of a multi-key sort
type SortOrder struct {
	Property  string
	Direction Direction
}

// Pageable describes the requested slice of a result set
type Pageable struct {
	Page int
	Size int
	Sort []SortOrder
}

// Offset returns the index of the first row of the page
func (p Pageable) Offset() int {
	return p.Page * p.Size
}

func (p Pageable) IsSorted() bool {
	return len(p.Sort) > 0
}

// Page is one page of a query result
type Page[T any] struct {
	Items         []T
	Pageable      Pageable
	TotalElements int64
}

func NewPage[T any](items []T, pageable Pageable, total int64) *Page[T] {
	if items == nil {
		items = []T{}
	}
	return &Page[T]{Items: items, Pageable: pageable, TotalElements: total}
}

// TotalPages is ceil(TotalElements / Size)
func (p *Page[T]) TotalPages() int {
	if p.Pageable.Size <= 0 {
		return 1
	}
	size := int64(p.Pageable.Size)
	return int((p.TotalElements + size - 1) / size)
}

// IsLast reports whether no page follows this one
func (p *Page[T]) IsLast() bool {
	return p.Pageable.Page+1 >= p.TotalPages()
}

// orderBy maps the requested sort onto whitelisted columns. The tiebreak column
// is always appended so offsets stay stable across requests.
func orderBy(sort []SortOrder, columns map[string]string, tiebreak string) ([]exp.OrderedExpression, error) {
	order := make([]exp.OrderedExpression, 0, len(sort)+1)
	for _, s := range sort {
		col, ok := columns[s.Property]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidSort, s.Property)
		}
		if s.Direction == Desc {
			order = append(order, goqu.I(col).Desc())
		} else {
			order = append(order, goqu.I(col).Asc())
		}
	}
	return append(order, goqu.I(tiebreak).Asc()), nil
}
