package jsonapi

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSettings = Settings{APIBaseURL: "https://api.example.com/v1"}

func TestComputePagination(t *testing.T) {
	tests := []struct {
		name       string
		count      int
		page       Page
		totalPages int
		next       *int
		prev       *int
	}{
		{name: "first of three pages", count: 25, page: Page{Number: 0, Size: 10}, totalPages: 3, next: intPtr(1)},
		{name: "middle page", count: 25, page: Page{Number: 1, Size: 10}, totalPages: 3, next: intPtr(2), prev: intPtr(0)},
		{name: "exact multiple", count: 30, page: Page{Number: 2, Size: 10}, totalPages: 3, next: intPtr(3), prev: intPtr(1)},
		{name: "terminal page index", count: 25, page: Page{Number: 3, Size: 10}, totalPages: 3, prev: intPtr(2)},
		{name: "empty collection", count: 0, page: Page{Number: 0, Size: 10}, totalPages: 0},
		{name: "single item", count: 1, page: Page{Number: 0, Size: 10}, totalPages: 1, next: intPtr(1)},
		{name: "zero size does not divide", count: 10, page: Page{Number: 0, Size: 0}, totalPages: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ComputePagination(tt.count, tt.page)
			assert.Equal(t, tt.totalPages, p.TotalPages)
			assert.Equal(t, FirstPage, p.First)
			assert.Equal(t, tt.totalPages, p.Last)
			assert.Equal(t, tt.next, p.Next)
			assert.Equal(t, tt.prev, p.Prev)
		})
	}
}

func TestComputePaginationLargeNumbers(t *testing.T) {
	p := ComputePagination(25, Page{Number: math.MaxInt, Size: 10})
	assert.Nil(t, p.Next, "no page follows one past the end")
	require.NotNil(t, p.Prev)
	assert.Equal(t, math.MaxInt-1, *p.Prev)

	p = ComputePagination(25, Page{Number: math.MinInt, Size: 10})
	assert.Nil(t, p.Next)
	assert.Nil(t, p.Prev)

	p = ComputePagination(math.MaxInt, Page{Number: 0, Size: math.MaxInt - 1})
	assert.Equal(t, 2, p.TotalPages)
}

func TestPageValid(t *testing.T) {
	assert.True(t, Page{Number: 0, Size: 1}.Valid())
	assert.True(t, Page{Number: MaxPageNumber(4), Size: 4}.Valid())
	assert.False(t, Page{Number: MaxPageNumber(4) + 1, Size: 4}.Valid())
	assert.False(t, Page{Number: 1 << 62, Size: 4}.Valid(), "offset would wrap to zero")
	assert.False(t, Page{Number: -1, Size: 10}.Valid())
	assert.False(t, Page{Number: 0, Size: 0}.Valid())

	page := Page{Number: MaxPageNumber(500), Size: 500}
	assert.Positive(t, page.Offset())
}

func TestComputePaginationProperties(t *testing.T) {
	for count := 0; count <= 60; count++ {
		for size := 1; size <= 12; size++ {
			total := ComputePagination(count, Page{Number: 0, Size: size}).TotalPages

			want := count / size
			if count%size != 0 {
				want++
			}
			require.Equal(t, want, total, "count=%d size=%d", count, size)
			require.Equal(t, count == 0, total == 0, "count=%d size=%d", count, size)

			for number := 0; number <= total; number++ {
				p := ComputePagination(count, Page{Number: number, Size: size})
				assert.Equal(t, number < total, p.Next != nil, "next count=%d size=%d page=%d", count, size, number)
				assert.Equal(t, number > 0, p.Prev != nil, "prev count=%d size=%d page=%d", count, size, number)
			}
		}
	}
}

func TestPaginationLinks(t *testing.T) {
	t.Run("first page of three", func(t *testing.T) {
		page := Page{Number: 0, Size: 10}
		links := ComputePagination(25, page).Links(testSettings, "/blocks", page)

		assert.Equal(t, "https://api.example.com/v1/blocks?page[number]=0&page[size]=10", links.Self)
		assert.Equal(t, "https://api.example.com/v1/blocks?page[number]=0&page[size]=10", links.First)
		assert.Equal(t, "https://api.example.com/v1/blocks?page[number]=3&page[size]=10", links.Last)
		require.NotNil(t, links.Next)
		assert.Equal(t, "https://api.example.com/v1/blocks?page[number]=1&page[size]=10", *links.Next)
		assert.Nil(t, links.Prev)
	})

	t.Run("empty collection points last at first", func(t *testing.T) {
		page := Page{Number: 0, Size: 10}
		links := ComputePagination(0, page).Links(testSettings, "/blocks", page)

		assert.Equal(t, links.First, links.Last)
		assert.Nil(t, links.Next)
		assert.Nil(t, links.Prev)
	})
}

func TestComputeMeta(t *testing.T) {
	meta := ComputeMeta(25, Page{Number: 1, Size: 10})
	assert.Equal(t, &Meta{ItemsPerPage: 10, TotalItems: 25, CurrentPage: 1, TotalPages: 3}, meta)

	empty := ComputeMeta(0, Page{Number: 0, Size: 5})
	assert.Equal(t, 0, empty.TotalPages)
	assert.Equal(t, 5, empty.ItemsPerPage)
}

func intPtr(i int) *int {
	return &i
}
