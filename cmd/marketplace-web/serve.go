package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/marketlink/marketplace-web/internal/api"
	"github.com/marketlink/marketplace-web/internal/api/handler"
	"github.com/marketlink/marketplace-web/internal/core/domain"
	"github.com/marketlink/marketplace-web/internal/core/guard"
	"github.com/marketlink/marketplace-web/internal/core/ports"
	"github.com/marketlink/marketplace-web/internal/core/service"
	"github.com/marketlink/marketplace-web/internal/core/state"
	"github.com/marketlink/marketplace-web/internal/infrastructure/apiclient"
	"github.com/marketlink/marketplace-web/internal/infrastructure/config"
	mongodb "github.com/marketlink/marketplace-web/internal/infrastructure/db/mongo"
	redisdb "github.com/marketlink/marketplace-web/internal/infrastructure/db/redis"
	"github.com/marketlink/marketplace-web/internal/infrastructure/queue"
	"github.com/marketlink/marketplace-web/internal/infrastructure/realtime"
	"github.com/marketlink/marketplace-web/pkg/logger"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Long:  "Load configuration from the environment, connect the stores and the backend, and serve HTTP until interrupted.",
		RunE:  runServe,
	}
	cmd.Flags().String("port", "", "override the listen port")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}

	log := logger.Init(logger.Options{
		Level:           cfg.LogLevel,
		ComponentLevels: cfg.LogComponentLevels,
		Pretty:          cfg.IsDevelopment(),
		Service:         "marketplace-web",
		Version:         version,
	})

	// --- Stores ---
	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
		Timeout:  cfg.Redis.Timeout,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()

	mclient, mdb, err := mongodb.Connect(ctx, mongodb.Config{
		URI:         cfg.Mongo.URI,
		Database:    cfg.Mongo.Database,
		MaxPoolSize: cfg.Mongo.MaxPoolSize,
		Timeout:     cfg.Mongo.Timeout,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := mclient.Disconnect(context.Background()); err != nil {
			log.Warn().Err(err).Msg("mongo disconnect failed")
		}
	}()

	drafts := mongodb.NewDraftRepository(mdb)
	if err := drafts.EnsureIndexes(ctx, cfg.Session.DraftTTL); err != nil {
		return err
	}

	// --- Backend ---
	client, err := apiclient.NewClient(apiclient.Config{
		BaseURL:   cfg.Backend.URL,
		Timeout:   cfg.Backend.Timeout,
		RateLimit: cfg.Backend.RateLimit,
		Burst:     cfg.Backend.Burst,
	}, logger.Component("api_client"))
	if err != nil {
		return err
	}

	// --- Sessions and per-session scopes ---
	jar := service.NewCookieJar(cfg.JWTSecret, cfg.Session.CookieSecure)
	users := service.NewUserGateway(client, redisdb.NewUserCache(rdb, cfg.Session.UserCacheTTL), log)

	// The factory enqueues into the dispatcher, which delivers through the
	// registry the factory feeds.
	var dispatcher *queue.Dispatcher
	registry := state.NewRegistry(service.NewScopeFactory(service.ScopeDeps{
		Loader: users,
		API:    client,
		Channels: func(listener func(domain.NotificationEvent)) ports.ChannelManager {
			return realtime.NewManager(realtime.Options{
				URL:              cfg.Realtime.URL,
				MaxAttempts:      cfg.Realtime.MaxAttempts,
				HandshakeTimeout: cfg.Realtime.HandshakeTimeout,
			}, listener, logger.Component("realtime"))
		},
		Enqueue: func(ev ports.ScopedEvent) bool { return dispatcher.Enqueue(ev) },
		Log:     log,
	}), log)
	events := service.NewEventService(registry, redisdb.NewDedupChecker(rdb), log)
	dispatcher = queue.NewDispatcher(cfg.Realtime.Workers, events, logger.Component("dispatcher"))

	sessions := service.NewSessionService(jar, registry, service.NewAuthService(client, jar, log), log)
	client.SetUnauthorizedHandler(sessions.HandleUnauthorized)

	e, err := api.NewRouter(api.Deps{
		Log:          log,
		API:          client,
		Jar:          jar,
		Sessions:     sessions,
		Registration: service.NewRegistrationService(client, drafts, log),
		Locales:      state.NewLocales(cfg.Session.SupportedLocales, cfg.Session.DefaultLocale),
		Guard:        guard.New(guard.DefaultConfig(cfg.Session.DashboardPath)),
		Checks: map[string]handler.Check{
			"redis":   func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			"mongodb": func(ctx context.Context) error { return mclient.Ping(ctx, nil) },
			"backend": client.Ping,
		},
		Title:     "MarketLink",
		Swagger:   cfg.Swagger,
		StaticDir: cfg.StaticDir,
	})
	if err != nil {
		return fmt.Errorf("building router: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	dispatcher.Start(gctx)

	g.Go(func() error {
		registry.RunEviction(gctx, cfg.Session.EvictInterval, cfg.Session.IdleTTL)
		return nil
	})
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		err := e.Shutdown(shutdownCtx)
		registry.CloseAll(shutdownCtx)
		return err
	})

	err = g.Wait()
	dispatcher.Wait()
	return err
}
