package toc

// Paginator splits total number of items into pages of fixed size. Zero value
// is a single unbounded page.
type Paginator struct {
	total int
	size  int
	page  int
}

// NewPaginator creates paginator positioned on the first page. Page size <= 0
// means one unbounded page.
func NewPaginator(total, pageSize int) Paginator {
	return Paginator{total: max(total, 0), size: pageSize, page: 1}
}

func (p *Paginator) Total() int {
	return p.total
}

// Pages returns number of pages, never less than one.
func (p *Paginator) Pages() int {
	if p.size <= 0 || p.total == 0 {
		return 1
	}
	return (p.total + p.size - 1) / p.size
}

// Page returns current page (1 based).
func (p *Paginator) Page() int {
	return min(max(p.page, 1), p.Pages())
}

// SetPage changes current page clamping it into [1, Pages()].
func (p *Paginator) SetPage(n int) {
	p.page = min(max(n, 1), p.Pages())
}

// Offset returns index of the first item of the current page.
func (p *Paginator) Offset() int {
	if p.size <= 0 {
		return 0
	}
	return (p.Page() - 1) * p.size
}

// Limit returns maximum number of items on a page, 0 when unbounded.
func (p *Paginator) Limit() int {
	return max(p.size, 0)
}
