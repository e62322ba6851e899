package domain

import "math"

// Paging defaults applied when a caller supplies zero or missing values.
const (
	DefaultPage     = 1
	DefaultPageSize = 10
)

// PagedOptions holds pagination and ordering parameters for filtered reads.
// Search is carried for future filter extensions; the query engine does not
// consume it yet.
type PagedOptions struct {
	OrderBy  string
	Search   string
	Page     int
	PageSize int
}

// NewPagedOptions builds PagedOptions, coercing a zero page or page size to
// the default. Negative values are passed through unchanged; callers that
// want to reject them do so at the parsing boundary.
func NewPagedOptions(page, pageSize int, orderBy, search string) *PagedOptions {
	if page == 0 {
		page = DefaultPage
	}
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	return &PagedOptions{
		OrderBy:  orderBy,
		Search:   search,
		Page:     page,
		PageSize: pageSize,
	}
}

// PagedResult is a windowed subset of a result set plus the metadata needed
// to compute further windows.
type PagedResult[T any] struct {
	Data        []T   `json:"data"`
	CurrentPage int   `json:"current_page"`
	PageSize    int   `json:"page_size"`
	TotalCount  int64 `json:"total_count"`
	TotalPages  int   `json:"total_pages"`
	HasNext     bool  `json:"has_next"`
	HasPrevious bool  `json:"has_previous"`
}

// NewPagedResult creates a PagedResult with computed TotalPages and
// navigation flags. A nil data slice is normalized to an empty one.
func NewPagedResult[T any](data []T, total int64, opts *PagedOptions) *PagedResult[T] {
	totalPages := 0
	if opts.PageSize > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(opts.PageSize)))
	}

	if data == nil {
		data = []T{}
	}

	return &PagedResult[T]{
		Data:        data,
		CurrentPage: opts.Page,
		PageSize:    opts.PageSize,
		TotalCount:  total,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}
}
