package jsonapi

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FirstPage is the number of the first page. Pages are zero-based.
const FirstPage = 0

// ParentIDParam is the placeholder for the owning resource in nested collection paths
const ParentIDParam = "parentId"

// ErrTrailingSlash is returned by Settings.Validate when the base URL ends with "/"
var ErrTrailingSlash = errors.New("api base url must not end with '/'")

// Settings are the process-wide values every serializer needs
type Settings struct {
	// APIBaseURL prefixes every generated link, e.g. "https://api.example.com/v1"
	APIBaseURL string
	// HostMaintainerID is the participant that maintains this node
	HostMaintainerID string
}

// Validate checks the base URL invariant
func (s Settings) Validate() error {
	if s.APIBaseURL == "" {
		return errors.New("api base url is required")
	}
	if strings.HasSuffix(s.APIBaseURL, "/") {
		return fmt.Errorf("%w: %s", ErrTrailingSlash, s.APIBaseURL)
	}
	return nil
}

// Page is the requested window of a collection
type Page struct {
	Number int
	Size   int
}

// MaxPageNumber is the largest page number whose offset and successor fit in an int
func MaxPageNumber(size int) int {
	if size < 1 {
		return 0
	}
	return (math.MaxInt - 1) / size
}

// Valid reports whether the page can be used for pagination math
func (p Page) Valid() bool {
	return p.Number >= FirstPage && p.Size >= 1 && p.Number <= MaxPageNumber(p.Size)
}

// Offset is the number of rows before the page
func (p Page) Offset() int {
	return p.Number * p.Size
}

// LinkFunc builds a URL from the settings and an entity
type LinkFunc func(settings Settings, e Entity) string

// ResourceURL returns the canonical URL of a resource
func ResourceURL(settings Settings, path, id string) string {
	return settings.APIBaseURL + path + "/" + id
}

// CollectionURL returns the URL of one page of a collection
func CollectionURL(settings Settings, path string, page Page) string {
	return settings.APIBaseURL + path + pageQuery(page)
}

func pageQuery(page Page) string {
	return "?page[number]=" + strconv.Itoa(page.Number) + "&page[size]=" + strconv.Itoa(page.Size)
}

// ExpandPath replaces {name} placeholders in a path template.
// {id} is the entity id, any other name is looked up with Entity.Field.
// Unknown placeholders expand to the empty string.
func ExpandPath(template string, e Entity) string {
	return expand(template, func(name string) string {
		if name == "id" {
			return e.EntityID()
		}
		v, ok := e.Field(name)
		if !ok || v == nil {
			return ""
		}
		if related, ok := v.(Entity); ok {
			return related.EntityID()
		}
		return fmt.Sprint(v)
	})
}

// ExpandParent replaces the {parentId} placeholder of a nested collection path
func ExpandParent(template, parentID string) string {
	return expand(template, func(name string) string {
		if name == ParentIDParam {
			return parentID
		}
		return ""
	})
}

func expand(template string, lookup func(string) string) string {
	if !strings.Contains(template, "{") {
		return template
	}

	var b strings.Builder
	rest := template
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:open])
		b.WriteString(lookup(rest[open+1 : open+end]))
		rest = rest[open+end+1:]
	}
	return b.String()
}

// SelfLink returns a LinkFunc for the canonical URL under path
func SelfLink(path string) LinkFunc {
	return func(settings Settings, e Entity) string {
		return ResourceURL(settings, path, e.EntityID())
	}
}

// RelatedResource links to a single resource addressed by a template filled from the owner,
// e.g. "/blocks/{blockId}"
func RelatedResource(template string) LinkFunc {
	return func(settings Settings, owner Entity) string {
		return settings.APIBaseURL + ExpandPath(template, owner)
	}
}

// RelatedCollection links to the first page of a collection addressed by a template
// filled from the owner, e.g. "/blocks/{id}/transactions"
func RelatedCollection(template string, pageSize int) LinkFunc {
	return func(settings Settings, owner Entity) string {
		return CollectionURL(settings, ExpandPath(template, owner), Page{Number: FirstPage, Size: pageSize})
	}
}
