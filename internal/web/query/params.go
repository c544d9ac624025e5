// Package query parses JSON:API query parameters.
package query

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"

	"github.com/conduit-lang/ledgerapi/internal/jsonapi"
)

const (
	// PageNumberParam selects the zero-based page
	PageNumberParam = "page[number]"
	// PageSizeParam selects the number of rows per page
	PageSizeParam = "page[size]"
)

// filterPattern matches query parameters like filter[key]
var filterPattern = regexp.MustCompile(`^filter\[([^\]]+)\]$`)

// PageLimits bounds page[size]
type PageLimits struct {
	DefaultSize int
	MaxSize     int
}

// ParamError reports an unusable query parameter
type ParamError struct {
	Parameter string
	Message   string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Parameter, e.Message)
}

// ParsePage reads page[number] and page[size].
// A missing number is the first page and a missing size is limits.DefaultSize.
func ParsePage(r *http.Request, limits PageLimits) (jsonapi.Page, error) {
	q := r.URL.Query()
	page := jsonapi.Page{Number: jsonapi.FirstPage, Size: limits.DefaultSize}

	if raw := q.Get(PageNumberParam); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return page, &ParamError{Parameter: PageNumberParam, Message: "must be an integer"}
		}
		if n < jsonapi.FirstPage {
			return page, &ParamError{Parameter: PageNumberParam, Message: "must not be negative"}
		}
		page.Number = n
	}

	if raw := q.Get(PageSizeParam); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return page, &ParamError{Parameter: PageSizeParam, Message: "must be an integer"}
		}
		if n < 1 {
			return page, &ParamError{Parameter: PageSizeParam, Message: "must be at least 1"}
		}
		if limits.MaxSize > 0 && n > limits.MaxSize {
			return page, &ParamError{Parameter: PageSizeParam, Message: fmt.Sprintf("must not exceed %d", limits.MaxSize)}
		}
		page.Size = n
	}

	if limit := jsonapi.MaxPageNumber(page.Size); page.Number > limit {
		return page, &ParamError{Parameter: PageNumberParam, Message: fmt.Sprintf("must not exceed %d for page[size]=%d", limit, page.Size)}
	}

	return page, nil
}

// ParseFilter parses the filter query parameters into a map of filter keys to values.
// Example: ?filter[status]=confirmed&filter[sender]=p1
// Returns: {"status": "confirmed", "sender": "p1"}
// Returns an empty map if no filter parameters are present.
func ParseFilter(r *http.Request) map[string]string {
	result := make(map[string]string)

	for key, values := range r.URL.Query() {
		matches := filterPattern.FindStringSubmatch(key)
		if len(matches) != 2 {
			continue
		}

		if len(values) > 0 {
			result[matches[1]] = values[0]
		}
	}

	return result
}
