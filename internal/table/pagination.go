package table

import "strconv"

const (
	DefaultPerPage = 10
	maxPageLinks   = 5
)

type Pagination struct {
	Page       int
	PerPage    int
	Total      int
	TotalPages int
	Start      int
	End        int
}

func (p Pagination) HasPrev() bool { return p.Page > 1 }
func (p Pagination) HasNext() bool { return p.Page < p.TotalPages }

// Paginate computes the window for page over total items. TotalPages is
// ceil(total/perPage), so 0 for an empty set; the page is clamped into
// [1, TotalPages] and stays 1 when there is nothing to show.
func Paginate(total, perPage, page int) Pagination {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if total < 0 {
		total = 0
	}

	totalPages := (total + perPage - 1) / perPage
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}

	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	return Pagination{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
		Start:      start,
		End:        end,
	}
}

// Link is one pagination control.
type Link struct {
	Label    string
	Page     int
	Active   bool
	Disabled bool
}

// Links renders first/prev/numbers/next/last controls with a sliding window of
// page numbers centred on the current page.
func Links(p Pagination) []Link {
	links := []Link{
		{Label: "«", Page: 1, Disabled: !p.HasPrev()},
		{Label: "‹", Page: p.Page - 1, Disabled: !p.HasPrev()},
	}

	first := p.Page - maxPageLinks/2
	if first < 1 {
		first = 1
	}
	last := first + maxPageLinks - 1
	if last > p.TotalPages {
		last = p.TotalPages
		first = last - maxPageLinks + 1
		if first < 1 {
			first = 1
		}
	}

	for n := first; n <= last; n++ {
		links = append(links, Link{Label: strconv.Itoa(n), Page: n, Active: n == p.Page})
	}

	links = append(links,
		Link{Label: "›", Page: p.Page + 1, Disabled: !p.HasNext()},
		Link{Label: "»", Page: max(p.TotalPages, 1), Disabled: !p.HasNext()},
	)
	return links
}
