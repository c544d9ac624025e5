// Package api serves the ledger resources as JSON:API documents.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/conduit-lang/ledgerapi/internal/cache"
	"github.com/conduit-lang/ledgerapi/internal/jsonapi"
	"github.com/conduit-lang/ledgerapi/internal/logging"
	"github.com/conduit-lang/ledgerapi/internal/resources"
	"github.com/conduit-lang/ledgerapi/internal/store"
	"github.com/conduit-lang/ledgerapi/internal/web/auth"
	webcontext "github.com/conduit-lang/ledgerapi/internal/web/context"
	"github.com/conduit-lang/ledgerapi/internal/web/query"
	"github.com/conduit-lang/ledgerapi/internal/web/ratelimit"
	"github.com/conduit-lang/ledgerapi/internal/web/response"
	"github.com/conduit-lang/ledgerapi/internal/web/router"
)

// Options configures a Handler
type Options struct {
	// Store is required to serve requests; route listing works without it
	Store    store.Store
	Registry *jsonapi.Registry
	Settings jsonapi.Settings
	Limits   query.PageLimits
	// Cache stores documents of immutable collections; nil disables caching
	Cache    cache.Cache
	CacheTTL time.Duration
	// Limiter throttles clients; nil disables rate limiting
	Limiter ratelimit.Limiter
	// Tokens verifies bearer tokens on key routes
	Tokens *auth.TokenService
	// Concurrency bounds relationship resolution per document
	Concurrency int
	Logger      *zap.Logger
}

// Handler serves the API
type Handler struct {
	store       store.Store
	registry    *jsonapi.Registry
	settings    jsonapi.Settings
	limits      query.PageLimits
	cache       cache.Cache
	cacheTTL    time.Duration
	limiter     ratelimit.Limiter
	tokens      *auth.TokenService
	concurrency int
	logger      *zap.Logger
}

// pinger is implemented by stores that can check their connection
type pinger interface {
	Ping(ctx context.Context) error
}

// New creates a Handler
func New(opts Options) (*Handler, error) {
	if err := opts.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("api: %w", err)
	}

	h := &Handler{
		store:       opts.Store,
		registry:    opts.Registry,
		settings:    opts.Settings,
		limits:      opts.Limits,
		cache:       opts.Cache,
		cacheTTL:    opts.CacheTTL,
		limiter:     opts.Limiter,
		tokens:      opts.Tokens,
		concurrency: opts.Concurrency,
		logger:      logging.OrNop(opts.Logger),
	}
	if h.registry == nil {
		r, err := resources.NewRegistry()
		if err != nil {
			return nil, err
		}
		h.registry = r
	}
	if h.limits.DefaultSize <= 0 {
		h.limits.DefaultSize = resources.DefaultPageSize
	}
	if h.limits.MaxSize <= 0 {
		h.limits.MaxSize = resources.MaxPageSize
	}
	if h.tokens == nil {
		// without a secret every token is rejected
		h.tokens = auth.NewTokenService("", 0)
	}

	return h, nil
}

func (h *Handler) descriptor(collection string) *jsonapi.Descriptor {
	d, ok := h.registry.Lookup(collection)
	if !ok {
		panic(fmt.Sprintf("api: no descriptor for collection %q", collection))
	}
	return d
}

func (h *Handler) serializer(d *jsonapi.Descriptor, opts ...jsonapi.Option) *jsonapi.Serializer {
	opts = append([]jsonapi.Option{
		jsonapi.WithRegistry(h.registry),
		jsonapi.WithConcurrency(h.concurrency),
	}, opts...)
	return jsonapi.NewSerializer(d, h.settings, opts...)
}

// List serves one page of a top-level collection
func (h *Handler) List(collection string) http.HandlerFunc {
	d := h.descriptor(collection)

	return func(w http.ResponseWriter, r *http.Request) {
		page, err := query.ParsePage(r, h.limits)
		if err != nil {
			h.fail(w, r, err)
			return
		}

		result, err := h.store.List(r.Context(), collection, store.Query{
			Page:    page,
			Filters: query.ParseFilter(r),
		})
		if err != nil {
			h.fail(w, r, err)
			return
		}

		doc, err := h.serializer(d).SerializeMany(r.Context(), result.Rows, result.Count, page)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		h.render(w, r, doc)
	}
}

// ListNested serves one page of a collection scoped to the {id} parent.
// The parent is looked up in parentCollection first so a missing parent is a 404
// rather than an empty page.
func (h *Handler) ListNested(collection, parentCollection string) http.HandlerFunc {
	d := h.descriptor(collection)

	return func(w http.ResponseWriter, r *http.Request) {
		parentID, ok := router.PathParamID(r, "id")
		if !ok {
			h.fail(w, r, store.ErrNotFound)
			return
		}

		page, err := query.ParsePage(r, h.limits)
		if err != nil {
			h.fail(w, r, err)
			return
		}

		if _, err := h.store.Get(r.Context(), parentCollection, parentID); err != nil {
			h.fail(w, r, err)
			return
		}

		result, err := h.store.List(r.Context(), collection, store.Query{
			Page:     page,
			Filters:  query.ParseFilter(r),
			ParentID: parentID,
		})
		if err != nil {
			h.fail(w, r, err)
			return
		}

		doc, err := h.serializer(d, jsonapi.WithParentID(parentID)).SerializeMany(r.Context(), result.Rows, result.Count, page)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		h.render(w, r, doc)
	}
}

// Show serves the {id} resource of a collection
func (h *Handler) Show(collection string) http.HandlerFunc {
	d := h.descriptor(collection)

	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := router.PathParamID(r, "id")
		if !ok {
			h.fail(w, r, store.ErrNotFound)
			return
		}
		h.show(w, r, d, id)
	}
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request, d *jsonapi.Descriptor, id string) {
	e, err := h.store.Get(r.Context(), d.CollectionName, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	doc, err := h.serializer(d).SerializeOne(r.Context(), e)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, doc)
}

// Maintainer serves the participant that maintains this node
func (h *Handler) Maintainer() http.HandlerFunc {
	d := h.descriptor(resources.Participants)

	return func(w http.ResponseWriter, r *http.Request) {
		if h.settings.HostMaintainerID == "" {
			h.fail(w, r, ErrNoMaintainer)
			return
		}
		h.show(w, r, d, h.settings.HostMaintainerID)
	}
}

// ParticipantKeys serves the keys of the {id} participant to that participant
// or to the host maintainer
func (h *Handler) ParticipantKeys() http.HandlerFunc {
	list := h.ListNested(resources.ParticipantKeys, resources.Participants)

	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := router.PathParamID(r, "id")
		if !h.mayView(r, id) {
			h.fail(w, r, ErrForbidden)
			return
		}
		list(w, r)
	}
}

// ShowKey serves the {id} key to its owner or to the host maintainer
func (h *Handler) ShowKey() http.HandlerFunc {
	d := h.descriptor(resources.Keys)

	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := router.PathParamID(r, "id")
		if !ok {
			h.fail(w, r, store.ErrNotFound)
			return
		}

		key, err := h.store.Get(r.Context(), resources.Keys, id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		owner, _ := key.Field("participantId")
		if !h.mayView(r, fmt.Sprint(owner)) {
			h.fail(w, r, ErrForbidden)
			return
		}

		doc, err := h.serializer(d).SerializeOne(r.Context(), key)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		h.render(w, r, doc)
	}
}

// mayView reports whether the authenticated participant may see data owned by owner
func (h *Handler) mayView(r *http.Request, owner string) bool {
	participant := webcontext.GetParticipant(r.Context())
	if participant == "" {
		return false
	}
	return participant == owner || participant == h.settings.HostMaintainerID
}

// health is the healthcheck body
type health struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Version  string `json:"jsonapiVersion"`
}

// Healthcheck reports whether the store is reachable
func (h *Handler) Healthcheck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := health{Status: "ok", Database: "ok", Version: jsonapi.Version}
		status := http.StatusOK

		if p, ok := h.store.(pinger); ok {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			err := p.Ping(ctx)
			cancel()
			if err != nil {
				h.logger.Warn("healthcheck failed", zap.Error(err))
				body.Status = "degraded"
				body.Database = "unavailable"
				status = http.StatusServiceUnavailable
			}
		}

		w.Header().Set("Content-Type", response.JSONMediaType)
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, doc *jsonapi.Document) {
	err := response.Render(w, r, http.StatusOK, doc)
	switch {
	case err == nil:
	case errors.Is(err, response.ErrWrite):
		h.logger.Warn("response write failed",
			zap.String("request_id", webcontext.GetRequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	default:
		h.fail(w, r, fmt.Errorf("render: %w", err))
	}
}

// fail writes the error document for err. Server-side failures are logged.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, apiErr := MapError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("request_id", webcontext.GetRequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	response.RenderErrors(w, r, status, apiErr)
}
