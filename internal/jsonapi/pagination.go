package jsonapi

// Pagination is the page arithmetic of a collection document
type Pagination struct {
	TotalPages int
	First      int
	Last       int
	// Next and Prev are nil when there is no such page
	Next *int
	Prev *int
}

// ComputePagination derives page boundaries from the total count.
// Last is TotalPages and Next exists while number < TotalPages.
// A non-positive page size yields zero pages.
func ComputePagination(count int, page Page) Pagination {
	totalPages := 0
	if page.Size > 0 && count > 0 {
		totalPages = count / page.Size
		if count%page.Size != 0 {
			totalPages++
		}
	}

	p := Pagination{
		TotalPages: totalPages,
		First:      FirstPage,
		Last:       totalPages,
	}

	if page.Number >= FirstPage && page.Number < totalPages {
		next := page.Number + 1
		p.Next = &next
	}
	if page.Number > FirstPage {
		prev := page.Number - 1
		p.Prev = &prev
	}

	return p
}

// Links renders the pagination as URLs under the collection path
func (p Pagination) Links(settings Settings, path string, page Page) *Links {
	links := &Links{
		Self: CollectionURL(settings, path, page),
		PaginationLinks: &PaginationLinks{
			First: CollectionURL(settings, path, Page{Number: p.First, Size: page.Size}),
			Last:  CollectionURL(settings, path, Page{Number: p.Last, Size: page.Size}),
		},
	}

	if p.Next != nil {
		next := CollectionURL(settings, path, Page{Number: *p.Next, Size: page.Size})
		links.Next = &next
	}
	if p.Prev != nil {
		prev := CollectionURL(settings, path, Page{Number: *p.Prev, Size: page.Size})
		links.Prev = &prev
	}

	return links
}

// Meta is the summary block of a collection document
type Meta struct {
	ItemsPerPage int `json:"itemsPerPage"`
	TotalItems   int `json:"totalItems"`
	CurrentPage  int `json:"currentPage"`
	TotalPages   int `json:"totalPages"`
}

// ComputeMeta summarizes a page of a collection
func ComputeMeta(count int, page Page) *Meta {
	return &Meta{
		ItemsPerPage: page.Size,
		TotalItems:   count,
		CurrentPage:  page.Number,
		TotalPages:   ComputePagination(count, page).TotalPages,
	}
}
