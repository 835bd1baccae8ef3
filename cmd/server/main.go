package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"cotador/internal/config"
	"cotador/internal/database"
	"cotador/internal/extract"
	"cotador/internal/gmailapi"
	"cotador/internal/handlers"
	"cotador/internal/listener"
	"cotador/internal/openai"
	"cotador/internal/outbound"
	"cotador/internal/reconcile"
	"cotador/internal/server"
	"cotador/internal/store"
	"cotador/internal/watch"

	"golang.org/x/sync/errgroup"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Setup logger
	logger := cfg.SetupLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database connection
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Database connection failed")
	}
	logger.Info().Msg("Database connection established")

	st := store.New(db)
	if err := st.EnsureTables(); err != nil {
		logger.Fatal().Err(err).Msg("Schema setup failed")
	}

	// LLM client for offer extraction
	llm, err := openai.NewClient(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("OpenAI client setup failed")
	}
	extractor := extract.New(llm, time.Duration(cfg.OpenAITimeout)*time.Second)

	// Outbound mail for quotation requests
	mailer := outbound.NewMailer(cfg.SendGridAPIKey, cfg.PurchasingEmail, cfg.PurchasingName)

	// Gmail integration is optional: without credentials the service
	// still serves the quotation API, it just cannot receive replies
	var notifier handlers.Notifier
	var watchMgr *watch.Manager
	gmailClient, err := gmailapi.New(ctx, cfg, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("Gmail integration disabled")
	} else {
		engine := reconcile.New(st, extractor, logger, cfg.CandidateLimit)
		notifier = listener.New(gmailClient, st, engine, logger, cfg.HistoryPageSize)
		watchMgr = watch.New(gmailClient, st, logger, time.Duration(cfg.WatchRenewHours)*time.Hour)
	}

	srv := server.New(cfg, db, logger, st, notifier, mailer)
	srv.Initialize()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Start()
	})

	if watchMgr != nil {
		g.Go(func() error {
			return watchMgr.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return srv.Shutdown()
	})

	if err := g.Wait(); err != nil && gctx.Err() == nil {
		logger.Fatal().Err(err).Msg("Server exited with error")
	}
	logger.Info().Msg("Server stopped")
}
