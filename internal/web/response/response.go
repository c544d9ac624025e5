// Package response writes JSON:API documents.
package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/conduit-lang/ledgerapi/internal/jsonapi"
)

const (
	// JSONAPIMediaType is the official JSON:API media type
	JSONAPIMediaType = "application/vnd.api+json"
	// JSONMediaType is served to clients that only accept plain JSON
	JSONMediaType = "application/json"
)

// ErrWrite wraps failures to write the body after the status line was sent
var ErrWrite = errors.New("response: write failed")

// Negotiate picks the media type of the response from the Accept header.
// JSON:API is served only when the client names it without media type
// parameters; a missing header and wildcards get plain JSON. It returns false
// when the client accepts neither.
func Negotiate(r *http.Request) (string, bool) {
	accept := r.Header.Get("Accept")
	if strings.TrimSpace(accept) == "" {
		return JSONMediaType, true
	}

	plainJSON := false
	for _, part := range strings.Split(accept, ",") {
		mediaType, params, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		delete(params, "q")

		switch mediaType {
		case JSONAPIMediaType:
			if len(params) == 0 {
				return JSONAPIMediaType, true
			}
		case JSONMediaType, "*/*", "application/*":
			plainJSON = true
		}
	}

	if plainJSON {
		return JSONMediaType, true
	}
	return "", false
}

// Render marshals doc and writes it with the negotiated media type.
// Nothing is written when marshaling fails. Errors wrapping ErrWrite mean the
// headers are already out and the response cannot be replaced.
func Render(w http.ResponseWriter, r *http.Request, status int, doc *jsonapi.Document) error {
	mediaType, ok := Negotiate(r)
	if !ok {
		RenderError(w, r, http.StatusNotAcceptable, "", "")
		return nil
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", mediaType)
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}

// RenderErrors writes an error document. Error documents are always served,
// falling back to JSON:API when negotiation fails.
func RenderErrors(w http.ResponseWriter, r *http.Request, status int, errs ...*jsonapi.Error) {
	mediaType, ok := Negotiate(r)
	if !ok {
		mediaType = JSONAPIMediaType
	}

	data, err := json.Marshal(jsonapi.NewErrorDocument(errs...))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", mediaType)
	w.WriteHeader(status)
	w.Write(data)
}

// RenderError writes a single error object with a code derived from status
func RenderError(w http.ResponseWriter, r *http.Request, status int, detail, parameter string) {
	RenderErrors(w, r, status, NewError(status, detail, parameter))
}

// NewError builds an error object; parameter, when set, becomes source.parameter
func NewError(status int, detail, parameter string) *jsonapi.Error {
	e := &jsonapi.Error{
		Status: strconv.Itoa(status),
		Code:   CodeFromStatus(status),
		Title:  http.StatusText(status),
		Detail: detail,
	}
	if parameter != "" {
		e.Source = &jsonapi.ErrorSource{Parameter: parameter}
	}
	return e
}

// CodeFromStatus maps HTTP status codes to error codes
func CodeFromStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusNotAcceptable:
		return "not_acceptable"
	case http.StatusRequestTimeout:
		return "request_timeout"
	case http.StatusUnsupportedMediaType:
		return "unsupported_media_type"
	case http.StatusTooManyRequests:
		return "too_many_requests"
	case http.StatusInternalServerError:
		return "internal_error"
	case http.StatusNotImplemented:
		return "not_implemented"
	case http.StatusServiceUnavailable:
		return "service_unavailable"
	case http.StatusGatewayTimeout:
		return "gateway_timeout"
	default:
		return "error"
	}
}
