// Package store is the data-access layer behind the API.
//
// A Store answers two questions for a collection: one page of rows plus the
// total count, and a single row by id. Rows come back as jsonapi.Record values
// with their relationships preloaded, ready for the serializer.
package store

import (
	"context"
	"errors"

	"github.com/conduit-lang/ledgerapi/internal/jsonapi"
)

var (
	// ErrNotFound is returned when a row does not exist
	ErrNotFound = errors.New("record not found")

	// ErrUnknownCollection is returned for a collection without a table
	ErrUnknownCollection = errors.New("unknown collection")

	// ErrInvalidFilter is returned for a filter key the collection does not support
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrMissingParent is returned when a nested collection is listed without a parent id
	ErrMissingParent = errors.New("parent id required")

	// ErrUnavailable is returned when the database cannot be reached
	ErrUnavailable = errors.New("database unavailable")
)

// Query selects one page of a collection
type Query struct {
	Page     jsonapi.Page
	Filters  map[string]string
	ParentID string
}

// PageResult is one page of rows and the total number of matching rows
type PageResult struct {
	Count int
	Rows  []jsonapi.Entity
}

// Store reads collections
type Store interface {
	// List returns one page of a collection
	List(ctx context.Context, collection string, q Query) (*PageResult, error)

	// Get returns a single row of a collection
	Get(ctx context.Context, collection, id string) (jsonapi.Entity, error)

	// Close releases resources
	Close() error
}

// IsNotFound returns true if the error is ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
