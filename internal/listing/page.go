package listing

import "math"

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Clamp coerces page numbers and sizes below 1 up to 1. It is idempotent.
func Clamp(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 1
	}
	return page, size
}

// Window is a clamped page request.
type Window struct {
	Page int
	Size int
}

func NewWindow(page, size int) Window {
	page, size = Clamp(page, size)
	return Window{Page: page, Size: size}
}

// Offset is the number of rows before the window, saturating instead of overflowing.
func (w Window) Offset() int {
	page, size := Clamp(w.Page, w.Size)
	if page-1 > math.MaxInt/size {
		return math.MaxInt
	}
	return (page - 1) * size
}

func (w Window) Limit() int {
	_, size := Clamp(w.Page, w.Size)
	return size
}

// Page is one window of an ordered result plus its navigation metadata.
type Page[T any] struct {
	Items           []T  `json:"items"`
	PageNumber      int  `json:"pageNumber"`
	PageSize        int  `json:"pageSize"`
	TotalCount      int  `json:"totalCount"`
	TotalPages      int  `json:"totalPages"`
	HasPreviousPage bool `json:"hasPreviousPage"`
	HasNextPage     bool `json:"hasNextPage"`
}

// Meta is the navigation part of a page, served in the X-Pagination header.
type Meta struct {
	TotalCount      int  `json:"totalCount"`
	PageNumber      int  `json:"pageNumber"`
	TotalPages      int  `json:"totalPages"`
	HasPreviousPage bool `json:"hasPreviousPage"`
	HasNextPage     bool `json:"hasNextPage"`
}

// NewPage wraps an already windowed slice. items may be nil; the page never is.
func NewPage[T any](items []T, total int, w Window) Page[T] {
	page, size := Clamp(w.Page, w.Size)
	if total < 0 {
		total = 0
	}
	if items == nil {
		items = []T{}
	}
	totalPages := total / size
	if total%size != 0 {
		totalPages++
	}
	return Page[T]{
		Items:           items,
		PageNumber:      page,
		PageSize:        size,
		TotalCount:      total,
		TotalPages:      totalPages,
		HasPreviousPage: page > 1,
		HasNextPage:     page < totalPages,
	}
}

// Paginate windows an in-memory ordered slice.
func Paginate[T any](all []T, page, size int) Page[T] {
	w := NewWindow(page, size)
	start := w.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + w.Limit()
	if end > len(all) || end < start {
		end = len(all)
	}
	window := make([]T, end-start)
	copy(window, all[start:end])
	return NewPage(window, len(all), w)
}

func (p Page[T]) Meta() Meta {
	return Meta{
		TotalCount:      p.TotalCount,
		PageNumber:      p.PageNumber,
		TotalPages:      p.TotalPages,
		HasPreviousPage: p.HasPreviousPage,
		HasNextPage:     p.HasNextPage,
	}
}
