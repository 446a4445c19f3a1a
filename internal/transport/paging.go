package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"mercadolibros/internal/repository"
)

var errMalformedPageable = errors.New("malformed paging parameters")

// PagedResponse is the JSON envelope of every list endpoint
type PagedResponse[T any] struct {
	Content       []T          `json:"content"`
	Page          int          `json:"page"`
	Size          int          `json:"size"`
	TotalElements int64        `json:"totalElements"`
	TotalPages    int          `json:"totalPages"`
	Last          bool         `json:"last"`
	Sort          SortMetadata `json:"sort"`
}

// SortMetadata renders the applied sort keys as an ordered object,
// or {"sorted":"NONE"} when the page is unsorted
type SortMetadata []repository.SortOrder

func (s SortMetadata) MarshalJSON() ([]byte, error) {
	if len(s) == 0 {
		return []byte(`{"sorted":"NONE"}`), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, order := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(order.Property)
		if err != nil {
			return nil, err
		}
		direction, err := json.Marshal(string(order.Direction))
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(direction)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// NewPagedResponse projects a repository page through mapFn
func NewPagedResponse[T, R any](page *repository.Page[T], mapFn func(T) R) PagedResponse[R] {
	content := make([]R, 0, len(page.Items))
	for _, item := range page.Items {
		content = append(content, mapFn(item))
	}

	return PagedResponse[R]{
		Content:       content,
		Page:          page.Pageable.Page,
		Size:          page.Pageable.Size,
		TotalElements: page.TotalElements,
		TotalPages:    page.TotalPages(),
		Last:          page.IsLast(),
		Sort:          SortMetadata(page.Pageable.Sort),
	}
}

// parsePageable reads page, size and sort from the query string.
//
// page is 0-based. size defaults to DefaultPageSize and is capped at MaxPageSize.
// Each sort parameter is "prop[,prop...][,asc|desc]" and parameters keep their order.
func parsePageable(r *http.Request) (repository.Pageable, error) {
	query := r.URL.Query()
	pageable := repository.Pageable{Size: repository.DefaultPageSize}

	if raw := query.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 0 {
			return pageable, fmt.Errorf("%w: page must be a non-negative integer", errMalformedPageable)
		}
		pageable.Page = page
	}

	if raw := query.Get("size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			return pageable, fmt.Errorf("%w: size must be an integer", errMalformedPageable)
		}
		switch {
		case size < 1:
			size = repository.DefaultPageSize
		case size > repository.MaxPageSize:
			size = repository.MaxPageSize
		}
		pageable.Size = size
	}

	for _, raw := range query["sort"] {
		pageable.Sort = append(pageable.Sort, parseSort(raw)...)
	}

	return pageable, nil
}

func parseSort(raw string) []repository.SortOrder {
	var props []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			props = append(props, part)
		}
	}
	if len(props) == 0 {
		return nil
	}

	direction := repository.Asc
	switch strings.ToLower(props[len(props)-1]) {
	case "asc":
		props = props[:len(props)-1]
	case "desc":
		direction = repository.Desc
		props = props[:len(props)-1]
	}

	orders := make([]repository.SortOrder, 0, len(props))
	for _, p := range props {
		orders = append(orders, repository.SortOrder{Property: p, Direction: direction})
	}
	return orders
}
