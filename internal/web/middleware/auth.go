package middleware

import (
	"net/http"
	"strings"

	"github.com/conduit-lang/ledgerapi/internal/web/auth"
	webcontext "github.com/conduit-lang/ledgerapi/internal/web/context"
	"github.com/conduit-lang/ledgerapi/internal/web/response"
)

// Auth requires a valid bearer token and stores its subject as the current participant
func Auth(tokens *auth.TokenService) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, r, "Authorization required")
				return
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				unauthorized(w, r, "Invalid authorization format")
				return
			}

			participantID, err := tokens.ValidateToken(token)
			if err != nil {
				unauthorized(w, r, "Invalid token")
				return
			}

			r = r.WithContext(webcontext.SetParticipant(r.Context(), participantID))
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="ledgerapi"`)
	response.RenderError(w, r, http.StatusUnauthorized, detail, "")
}
