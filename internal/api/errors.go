package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/conduit-lang/ledgerapi/internal/jsonapi"
	"github.com/conduit-lang/ledgerapi/internal/store"
	"github.com/conduit-lang/ledgerapi/internal/web/query"
	"github.com/conduit-lang/ledgerapi/internal/web/response"
)

var (
	// ErrForbidden is returned when the authenticated participant may not see a resource
	ErrForbidden = errors.New("forbidden")
	// ErrNoMaintainer is returned by /maintainer when no host maintainer is configured
	ErrNoMaintainer = errors.New("no host maintainer is configured")
)

// MapError converts an error into an HTTP status and a JSON:API error object.
// Details of server-side failures are not exposed.
func MapError(err error) (int, *jsonapi.Error) {
	var paramErr *query.ParamError

	switch {
	case errors.As(err, &paramErr):
		return http.StatusBadRequest, response.NewError(http.StatusBadRequest, paramErr.Error(), paramErr.Parameter)

	case errors.Is(err, store.ErrInvalidFilter):
		return http.StatusBadRequest, response.NewError(http.StatusBadRequest, err.Error(), "filter")

	case errors.Is(err, jsonapi.ErrInvalidPage):
		return http.StatusBadRequest, response.NewError(http.StatusBadRequest, err.Error(), "page")

	case errors.Is(err, store.ErrNotFound), errors.Is(err, jsonapi.ErrNoData):
		return http.StatusNotFound, response.NewError(http.StatusNotFound, "Resource not found", "")

	case errors.Is(err, ErrNoMaintainer):
		return http.StatusNotFound, response.NewError(http.StatusNotFound, "No host maintainer is configured", "")

	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, response.NewError(http.StatusForbidden, "Access to this resource is not allowed", "")

	case errors.Is(err, store.ErrUnavailable):
		return http.StatusServiceUnavailable, response.NewError(http.StatusServiceUnavailable, "The ledger database is unavailable", "")

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, response.NewError(http.StatusGatewayTimeout, "The request timed out", "")

	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, response.NewError(http.StatusServiceUnavailable, "The request was canceled", "")

	default:
		return http.StatusInternalServerError, response.NewError(http.StatusInternalServerError, "An unexpected error occurred", "")
	}
}
