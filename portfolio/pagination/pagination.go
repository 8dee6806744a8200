// Package pagination is the shared filter/paginate/sort layer behind every
// list endpoint. Callers build a filtered gorm query, parse the page
// parameters from the request, and Run produces the uniform envelope.
package pagination

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

const MaxPageSize = 100

type Params struct {
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

func intQueryParam(r *http.Request, key, fallback string) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		value = fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		n, _ = strconv.Atoi(fallback)
	}
	return n
}

// ParseParams reads page/pageSize/sortBy/sortOrder from the request query.
// Page is clamped to >= 1, pageSize to [1, MaxPageSize]. A sort column not in
// the allow-list silently falls back to defaultSort, identifiers are never
// taken from the request verbatim. Any sortOrder other than "desc" sorts
// ascending.
func ParseParams(r *http.Request, defaultPageSize int, allowedSorts []string, defaultSort string) Params {
	page := max(1, intQueryParam(r, "page", "1"))
	size := min(MaxPageSize, max(1, intQueryParam(r, "pageSize", strconv.Itoa(defaultPageSize))))

	sortBy := r.URL.Query().Get("sortBy")
	if !slices.Contains(allowedSorts, sortBy) {
		sortBy = defaultSort
	}

	sortOrder := "asc"
	if r.URL.Query().Get("sortOrder") == "desc" {
		sortOrder = "desc"
	}

	return Params{Page: page, PageSize: size, SortBy: sortBy, SortOrder: sortOrder}
}

func (p Params) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// OrderClause renders the validated sort specification, optionally qualified
// with a table name for queries that join.
func (p Params) OrderClause(table string) string {
	column := p.SortBy
	if table != "" {
		column = table + "." + column
	}
	return fmt.Sprintf("%v %v", column, strings.ToUpper(p.SortOrder))
}

// Page is the envelope returned by every list endpoint. Data holds at most
// PageSize rows, Total counts all rows matching the filters.
type Page[T any] struct {
	Data       []T   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalPages int64 `json:"totalPages"`
}

// Run executes the count and page queries against the given filtered query.
// A page past the last returns empty Data with the correct Total. The order
// clause must come from Params.OrderClause or a fixed string, never from
// request input.
func Run[T any](query *gorm.DB, p Params, order string) (Page[T], error) {
	var total int64
	result := query.Session(&gorm.Session{}).Count(&total)
	if result.Error != nil {
		slog.Error("sql error counting rows for page", "error", result.Error)
		return Page[T]{}, result.Error
	}

	rows := make([]T, 0, p.PageSize)
	result = query.Session(&gorm.Session{}).Order(order).Offset(p.Offset()).Limit(p.PageSize).Find(&rows)
	if result.Error != nil {
		slog.Error("sql error fetching page", "error", result.Error)
		return Page[T]{}, result.Error
	}

	totalPages := (total + int64(p.PageSize) - 1) / int64(p.PageSize)

	return Page[T]{
		Data:       rows,
		Total:      total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: totalPages,
	}, nil
}
