package toc

import "testing"

func TestPaginator(t *testing.T) {
	tests := []struct {
		name       string
		total      int
		size       int
		page       int
		wantPages  int
		wantPage   int
		wantOffset int
		wantLimit  int
	}{
		{name: "first page", total: 95, size: 20, page: 1, wantPages: 5, wantPage: 1, wantOffset: 0, wantLimit: 20},
		{name: "last page", total: 95, size: 20, page: 5, wantPages: 5, wantPage: 5, wantOffset: 80, wantLimit: 20},
		{name: "past last page", total: 95, size: 20, page: 9, wantPages: 5, wantPage: 5, wantOffset: 80, wantLimit: 20},
		{name: "zero page", total: 95, size: 20, page: 0, wantPages: 5, wantPage: 1, wantOffset: 0, wantLimit: 20},
		{name: "negative page", total: 95, size: 20, page: -3, wantPages: 5, wantPage: 1, wantOffset: 0, wantLimit: 20},
		{name: "exact fit", total: 40, size: 20, page: 2, wantPages: 2, wantPage: 2, wantOffset: 20, wantLimit: 20},
		{name: "nothing", total: 0, size: 20, page: 3, wantPages: 1, wantPage: 1, wantOffset: 0, wantLimit: 20},
		{name: "unbounded", total: 95, size: 0, page: 4, wantPages: 1, wantPage: 1, wantOffset: 0, wantLimit: 0},
		{name: "negative size", total: 95, size: -5, page: 2, wantPages: 1, wantPage: 1, wantOffset: 0, wantLimit: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPaginator(tt.total, tt.size)
			p.SetPage(tt.page)
			if got := p.Pages(); got != tt.wantPages {
				t.Errorf("Pages() = %d, want %d", got, tt.wantPages)
			}
			if got := p.Page(); got != tt.wantPage {
				t.Errorf("Page() = %d, want %d", got, tt.wantPage)
			}
			if got := p.Offset(); got != tt.wantOffset {
				t.Errorf("Offset() = %d, want %d", got, tt.wantOffset)
			}
			if got := p.Limit(); got != tt.wantLimit {
				t.Errorf("Limit() = %d, want %d", got, tt.wantLimit)
			}
			if got := p.Total(); got != max(tt.total, 0) {
				t.Errorf("Total() = %d, want %d", got, tt.total)
			}
		})
	}
}

func TestPaginator_ZeroValue(t *testing.T) {
	var p Paginator
	if p.Pages() != 1 || p.Page() != 1 || p.Offset() != 0 || p.Limit() != 0 {
		t.Errorf("zero Paginator = pages %d page %d offset %d limit %d", p.Pages(), p.Page(), p.Offset(), p.Limit())
	}
}
