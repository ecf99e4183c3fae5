package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/influencer-desk/internal/access"
	"github.com/ashureev/influencer-desk/internal/api"
	"github.com/ashureev/influencer-desk/internal/catalog"
	"github.com/ashureev/influencer-desk/internal/config"
	"github.com/ashureev/influencer-desk/internal/export"
	"github.com/ashureev/influencer-desk/internal/flow"
	"github.com/ashureev/influencer-desk/internal/identity"
	"github.com/ashureev/influencer-desk/internal/intent"
	"github.com/ashureev/influencer-desk/internal/middleware"
	"github.com/ashureev/influencer-desk/internal/records"
	"github.com/ashureev/influencer-desk/internal/session"
	"github.com/ashureev/influencer-desk/internal/store"
	"github.com/ashureev/influencer-desk/internal/telegram"
	"github.com/ashureev/influencer-desk/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP, WebSocket and Telegram transports",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, slog.Default())
		},
	}
}

//nolint:gocyclo // Startup wiring is intentionally sequential to keep dependency setup explicit.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			logger.Error("Failed to close repository", "error", closeErr)
		}
	}()
	if err := repo.Ping(ctx); err != nil {
		return fmt.Errorf("database health check: %w", err)
	}
	logger.Info("Database connected")

	cat := catalog.Default()
	if cfg.CatalogPath != "" {
		if cat, err = catalog.Load(cfg.CatalogPath); err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		logger.Info("Catalog loaded", "path", cfg.CatalogPath)
	}

	mode, err := access.ParseMode(cfg.Access.Mode)
	if err != nil {
		return err
	}
	gate := access.NewGate(mode, cfg.Access.InviteTokens, logger)

	var extractor intent.Extractor
	if cfg.Intent.Addr != "" {
		gcfg := intent.DefaultGrpcConfig(cfg.Intent.Addr)
		gcfg.Method = cfg.Intent.Method
		gcfg.RequestTimeout = cfg.Intent.Timeout
		client, err := intent.NewGrpcExtractor(gcfg, logger)
		if err != nil {
			return fmt.Errorf("intent client: %w", err)
		}
		defer client.Close()
		extractor = client
	} else {
		logger.Info("INTENT_ADDR not set, using the built-in parser")
	}

	snapshot := records.NewSnapshot(repo, cfg.RecordsCacheTTL, logger)
	sessions := session.NewMemoryStore(logger)

	ctrl, err := flow.New(flow.Config{
		PageSize:        cfg.Flow.ResultsPerPage,
		ResultsLimit:    cfg.Flow.ResultsLimit,
		CitiesLimit:     cfg.Flow.CitiesLimit,
		TopicsLimit:     cfg.Flow.TopicsLimit,
		OptionsPerPage:  flow.DefaultConfig().OptionsPerPage,
		MaxHistory:      cfg.Flow.MaxHistory,
		HistoryTTL:      cfg.Flow.HistoryTTL,
		IntentTimeout:   cfg.Intent.Timeout,
		PaymentMode:     flow.PaymentMode(cfg.Payment.Mode),
		PaymentPrice:    cfg.Payment.Price,
		PaymentCurrency: cfg.Payment.Currency,
	}, flow.Deps{
		Sessions:   sessions,
		Extractor:  extractor,
		Profiles:   repo,
		Selections: repo,
		Records:    snapshot,
		Exporters:  export.NewRegistry(export.CSV{}),
		Gate:       gate,
		Catalog:    cat,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("initialize controller: %w", err)
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute)
	handler := api.NewHandler(ctrl, snapshot, limiter, cfg.AllowedOrigins, logger)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(identity.Middleware(cfg.IsDevelopment()))
	handler.RegisterRoutes(r)
	r.Handle("/*", web.ConsoleHandler(web.ConsoleConfig{Title: "Influencer desk", WSPath: "/ws/chat"}))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // WebSocket connections are long-lived
		IdleTimeout:  120 * time.Second,
	}

	var bot *telegram.Bot
	if cfg.TelegramToken != "" {
		if bot, err = telegram.New(cfg.TelegramToken, ctrl, telegram.Texts{
			ContactButton: cat.Labels.SharePhone,
			Failure:       cat.Messages.Internal,
		}, logger); err != nil {
			return err
		}
	} else {
		logger.Info("TELEGRAM_BOT_TOKEN not set, Telegram transport disabled")
	}

	g, gctx := errgroup.WithContext(ctx)

	janitorDone := sessions.StartJanitor(gctx, cfg.SessionIdleTTL, 0)
	g.Go(func() error {
		<-janitorDone
		return nil
	})
	g.Go(func() error {
		limiter.Run(gctx, time.Minute)
		return nil
	})

	if bot != nil {
		g.Go(func() error {
			return bot.Run(gctx)
		})
	}

	g.Go(func() error {
		logger.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		handler.Close()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped successfully")
	return nil
}
