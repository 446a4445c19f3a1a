package transport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"mercadolibros/internal/repository"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pageableFor(t *testing.T, query string) (repository.Pageable, error) {
	t.Helper()
	return parsePageable(httptest.NewRequest(http.MethodGet, "/api/books?"+query, nil))
}

func TestParsePageable_Defaults(t *testing.T) {
	p, err := pageableFor(t, "")
	require.NoError(t, err)
	assert.Equal(t, repository.Pageable{Size: repository.DefaultPageSize}, p)
}

func TestParsePageable_SizeBounds(t *testing.T) {
	p, err := pageableFor(t, "page=3&size=5000")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, repository.MaxPageSize, p.Size)

	p, err = pageableFor(t, "size=0")
	require.NoError(t, err)
	assert.Equal(t, repository.DefaultPageSize, p.Size)
}

func TestParsePageable_Malformed(t *testing.T) {
	for _, q := range []string{"page=abc", "page=-1", "size=ten"} {
		_, err := pageableFor(t, q)
		assert.ErrorIs(t, err, errMalformedPageable, q)
	}
}

func TestParsePageable_SortKeepsOrder(t *testing.T) {
	p, err := pageableFor(t, "sort=title,authors,DESC&sort=price&sort=genre.name,asc&sort=")
	require.NoError(t, err)
	assert.Equal(t, []repository.SortOrder{
		{Property: "title", Direction: repository.Desc},
		{Property: "authors", Direction: repository.Desc},
		{Property: "price", Direction: repository.Asc},
		{Property: "genre.name", Direction: repository.Asc},
	}, p.Sort)
}

func TestSortMetadata_MarshalJSON(t *testing.T) {
	unsorted, err := json.Marshal(SortMetadata(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"sorted":"NONE"}`, string(unsorted))

	sorted, err := json.Marshal(SortMetadata{
		{Property: "title", Direction: repository.Asc},
		{Property: "price", Direction: repository.Desc},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"title":"ASC","price":"DESC"}`, string(sorted))
}

// Property: the envelope reports ceil(total/size) pages and last iff no page follows
func TestProperty_PagedResponseArithmetic(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("totalPages and last follow the page math", prop.ForAll(
		func(total int64, size int, page int) bool {
			pageable := repository.Pageable{Page: page, Size: size}
			resp := NewPagedResponse(repository.NewPage[int](nil, pageable, total), func(i int) int { return i })

			wantPages := int(total / int64(size))
			if total%int64(size) != 0 {
				wantPages++
			}

			return resp.TotalPages == wantPages &&
				resp.Last == (page+1 >= wantPages) &&
				resp.Content != nil &&
				resp.Size == size &&
				resp.Page == page
		},
		gen.Int64Range(0, 10000),
		gen.IntRange(1, repository.MaxPageSize),
		gen.IntRange(0, 50),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
