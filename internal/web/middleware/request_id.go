package middleware

import (
	"net/http"

	"github.com/google/uuid"

	webcontext "github.com/conduit-lang/ledgerapi/internal/web/context"
)

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLength bounds client-supplied ids
const maxRequestIDLength = 128

// RequestID adds a request id to the context and response.
// A client-supplied X-Request-ID is kept when it is short enough.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" || len(requestID) > maxRequestIDLength {
				requestID = uuid.New().String()
			}

			r = r.WithContext(webcontext.SetRequestID(r.Context(), requestID))
			w.Header().Set(RequestIDHeader, requestID)

			next.ServeHTTP(w, r)
		})
	}
}
