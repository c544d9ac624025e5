package commands

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/conduit-lang/ledgerapi/internal/api"
	"github.com/conduit-lang/ledgerapi/internal/cache"
	"github.com/conduit-lang/ledgerapi/internal/config"
	"github.com/conduit-lang/ledgerapi/internal/store"
	"github.com/conduit-lang/ledgerapi/internal/web/auth"
	"github.com/conduit-lang/ledgerapi/internal/web/profiling"
	"github.com/conduit-lang/ledgerapi/internal/web/ratelimit"
	"github.com/conduit-lang/ledgerapi/internal/web/server"
)

// NewServeCommand creates the serve command
func NewServeCommand(opts *globalOptions) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON:API",
		Long: `Serve the ledger resources over HTTP until interrupted.

On SIGINT or SIGTERM the server stops accepting connections, drains in-flight
requests within server.shutdown_timeout, then closes the database and cache.

When server.debug_addr is set, pprof and /debug/stats are served there too.`,
		Example: `  # Serve with ./ledgerapi.yaml
  ledgerapi serve

  # Create missing tables first
  ledgerapi serve --migrate

  # Override the port
  LEDGERAPI_SERVER_PORT=8080 ledgerapi serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}

			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, logger, migrate)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "Create missing tables before serving")
	return cmd
}

// serve wires the store, cache and rate limiter into the API and runs the
// server until ctx is canceled
func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger, migrate bool) (err error) {
	var closers []func() error
	addCloser := func(fn func() error) {
		closers = append(closers, sync.OnceValue(fn))
	}
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}
	}()

	st, err := store.Open(ctx, cfg.StoreOptions(), logger.Named("store"))
	if err != nil {
		return err
	}
	addCloser(st.Close)

	if migrate {
		if err := st.Migrate(ctx); err != nil {
			return err
		}
	}

	documents, err := cache.New(ctx, cfg.CacheOptions())
	if err != nil {
		return err
	}
	if documents != nil {
		addCloser(documents.Close)
	}

	limiter, err := ratelimit.New(ctx, cfg.RateLimitOptions())
	if err != nil {
		return err
	}
	if limiter != nil {
		addCloser(limiter.Close)
	}

	h, err := api.New(api.Options{
		Store:    st,
		Settings: cfg.Settings(),
		Limits:   cfg.PageLimits(),
		Cache:    documents,
		CacheTTL: cfg.Cache.TTL,
		Limiter:  limiter,
		Tokens:   auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	srvCfg := server.DefaultConfig(api.NewRouter(h))
	srvCfg.Address = cfg.Addr()
	srvCfg.ReadTimeout = cfg.Server.ReadTimeout
	srvCfg.WriteTimeout = cfg.Server.WriteTimeout
	srvCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout

	srv, err := server.New(srvCfg, logger.Named("http"))
	if err != nil {
		return err
	}
	for i := len(closers) - 1; i >= 0; i-- {
		closeFn := closers[i]
		srv.RegisterHook(func(context.Context) error { return closeFn() })
	}

	if cfg.Auth.JWTSecret == "" {
		logger.Warn("auth.jwt_secret is not set; key routes reject every request")
	}
	logger.Info("starting ledgerapi",
		zap.String("version", Version),
		zap.String("addr", cfg.Addr()),
		zap.String("base_url", cfg.API.BaseURL),
		zap.String("database", cfg.Database.Driver),
		zap.String("cache", cfg.Cache.Driver),
		zap.String("ratelimit", cfg.RateLimit.Driver),
	)

	if cfg.Server.DebugAddr == "" {
		return srv.Run(ctx)
	}

	debugCfg := server.DefaultConfig(profiling.Handler(profiling.Config{DBStats: st.DB().Stats}))
	debugCfg.Address = cfg.Server.DebugAddr
	// profiles run for up to 30s by default
	debugCfg.WriteTimeout = 0
	debug, err := server.New(debugCfg, logger.Named("debug"))
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return debug.Run(gctx) })
	return g.Wait()
}
