package records

// Page is one fixed-size slice of a list.
type Page[T any] struct {
	Items     []T `json:"items"`
	Page      int `json:"page"`
	PageCount int `json:"page_count"`
	PageSize  int `json:"page_size"`
	Total     int `json:"total"`
}

// HasNext reports whether a following page exists.
func (p Page[T]) HasNext() bool {
	return p.Page < p.PageCount
}

// HasPrev reports whether a preceding page exists.
func (p Page[T]) HasPrev() bool {
	return p.Page > 1
}

// PageCount returns max(1, ceil(total/pageSize)).
func PageCount(total, pageSize int) int {
	if pageSize < 1 {
		pageSize = 1
	}
	if total <= 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}

// ClampPage clamps page into [1, PageCount(total, pageSize)].
func ClampPage(page, total, pageSize int) int {
	count := PageCount(total, pageSize)
	if page < 1 {
		return 1
	}
	if page > count {
		return count
	}
	return page
}

// Paginate returns the requested page of items, clamping the page number.
// A pageSize below 1 is treated as 1.
func Paginate[T any](items []T, page, pageSize int) Page[T] {
	if pageSize < 1 {
		pageSize = 1
	}
	total := len(items)
	page = ClampPage(page, total, pageSize)
	start := (page - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	return Page[T]{
		Items:     items[start:end:end],
		Page:      page,
		PageCount: PageCount(total, pageSize),
		PageSize:  pageSize,
		Total:     total,
	}
}
