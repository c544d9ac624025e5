package api

import (
	"github.com/conduit-lang/ledgerapi/internal/cache"
	"github.com/conduit-lang/ledgerapi/internal/resources"
	"github.com/conduit-lang/ledgerapi/internal/web/middleware"
	"github.com/conduit-lang/ledgerapi/internal/web/ratelimit"
	"github.com/conduit-lang/ledgerapi/internal/web/router"
)

// HealthcheckPath is excluded from request logging and rate limiting
const HealthcheckPath = "/healthcheck"

// NewRouter builds the router with the request middleware and every API route
func NewRouter(h *Handler) *router.Router {
	r := router.NewRouter()
	r.Use(
		middleware.RequestID(),
		middleware.Recovery(h.logger),
		middleware.Logging(h.logger, HealthcheckPath),
	)
	h.Register(r)
	return r
}

// Register adds the API routes to r
func (h *Handler) Register(r *router.Router) {
	cached := router.With("cache", cache.Middleware(h.cache, h.cacheTTL, h.logger))
	limited := router.With("ratelimit", ratelimit.Middleware(h.limiter, ratelimit.ClientKey, h.logger))
	authed := router.With("auth", middleware.Auth(h.tokens))

	r.Get("/blocks", h.List(resources.Blocks),
		router.Named("blocks.list"), router.Collection(resources.Blocks), limited, cached)
	r.Get("/blocks/{id}", h.Show(resources.Blocks),
		router.Named("blocks.show"), router.Collection(resources.Blocks), limited, cached)
	r.Get("/blocks/{id}/transactions", h.ListNested(resources.BlockTransactions, resources.Blocks),
		router.Named("blocks.transactions"), router.Collection(resources.BlockTransactions), limited, cached)

	r.Get("/transactions", h.List(resources.Transactions),
		router.Named("transactions.list"), router.Collection(resources.Transactions), limited, cached)
	r.Get("/transactions/{id}", h.Show(resources.Transactions),
		router.Named("transactions.show"), router.Collection(resources.Transactions), limited, cached)

	r.Get("/participants", h.List(resources.Participants),
		router.Named("participants.list"), router.Collection(resources.Participants), limited)
	r.Get("/participants/{id}", h.Show(resources.Participants),
		router.Named("participants.show"), router.Collection(resources.Participants), limited)
	// auth runs first so the limiter counts the participant rather than the address
	r.Get("/participants/{id}/keys", h.ParticipantKeys(),
		router.Named("participants.keys"), router.Collection(resources.ParticipantKeys), authed, limited)

	r.Get("/keys/{id}", h.ShowKey(),
		router.Named("keys.show"), router.Collection(resources.Keys), authed, limited)

	r.Get("/organizations", h.List(resources.Organizations),
		router.Named("organizations.list"), router.Collection(resources.Organizations), limited)
	r.Get("/organizations/{id}", h.Show(resources.Organizations),
		router.Named("organizations.show"), router.Collection(resources.Organizations), limited)
	r.Get("/organizations/{id}/participants", h.ListNested(resources.OrganizationParticipants, resources.Organizations),
		router.Named("organizations.participants"), router.Collection(resources.OrganizationParticipants), limited)
	r.Get("/organizations/{id}/nodes", h.ListNested(resources.OrganizationNodes, resources.Organizations),
		router.Named("organizations.nodes"), router.Collection(resources.OrganizationNodes), limited)

	r.Get("/nodes", h.List(resources.Nodes),
		router.Named("nodes.list"), router.Collection(resources.Nodes), limited)
	r.Get("/nodes/{id}", h.Show(resources.Nodes),
		router.Named("nodes.show"), router.Collection(resources.Nodes), limited)

	r.Get("/maintainer", h.Maintainer(),
		router.Named("maintainer"), router.Collection(resources.Participants), limited)
	r.Get(HealthcheckPath, h.Healthcheck(), router.Named("healthcheck"))
}
