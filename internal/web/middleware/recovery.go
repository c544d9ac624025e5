package middleware

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	webcontext "github.com/conduit-lang/ledgerapi/internal/web/context"
	"github.com/conduit-lang/ledgerapi/internal/web/response"
)

// Recovery turns a panic into a 500 error document and logs it with its stack
func Recovery(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("panic recovered",
					zap.String("request_id", webcontext.GetRequestID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("panic", fmt.Sprint(rec)),
					zap.StackSkip("stack", 2),
				)

				response.RenderError(w, r, http.StatusInternalServerError, "An unexpected error occurred", "")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
