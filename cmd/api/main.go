package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mudanzasalegre/Dripio/internal/config"
	"github.com/mudanzasalegre/Dripio/internal/custodian"
	"github.com/mudanzasalegre/Dripio/internal/directory"
	"github.com/mudanzasalegre/Dripio/internal/domain"
	"github.com/mudanzasalegre/Dripio/internal/handler"
	"github.com/mudanzasalegre/Dripio/internal/logging"
	"github.com/mudanzasalegre/Dripio/internal/middleware"
	"github.com/mudanzasalegre/Dripio/internal/repository"
	"github.com/mudanzasalegre/Dripio/internal/service/stream"
	"github.com/mudanzasalegre/Dripio/internal/service/treasury"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("dripio-api", cfg.LogLevel, cfg.AppEnv)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	})
	cancel()
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	directoryClient := directory.NewClient(cfg.DirectoryURL)
	custodianClient := custodian.NewClient(cfg.CustodianURL)

	ledgerRepo := repository.NewLedgerRepository(db)
	entryRepo := repository.NewEntryRepository(db)
	moverRepo := repository.NewMoverRepository(db)
	streamRepo := repository.NewStreamRepository(db)
	eventRepo := repository.NewEventRepository(db)

	treasurySvc := treasury.NewService(
		ledgerRepo, entryRepo, moverRepo,
		custodianClient, directoryClient,
		db, domain.Asset(cfg.NativeAsset),
	)
	streamSvc := stream.NewService(
		streamRepo, eventRepo,
		treasurySvc, directoryClient,
		db, cfg,
	)

	healthHandler := handler.NewHealthHandler(db)
	treasuryHandler := handler.NewTreasuryHandler(treasurySvc)
	streamHandler := handler.NewStreamHandler(streamSvc)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler.Liveness)
	mux.HandleFunc("GET /health/ready", healthHandler.Readiness)

	authed := middleware.Auth(cfg.JWTSecret)
	idem := middleware.Idempotency(repository.NewIdempotencyRepository(db))
	// Mutating routes additionally require an Idempotency-Key so
	// caller retries replay instead of double-applying.
	mutating := func(h http.HandlerFunc) http.Handler { return authed(idem(h)) }

	mux.Handle("POST /api/v1/treasury/deposits", mutating(treasuryHandler.Deposit))
	mux.Handle("POST /api/v1/treasury/withdrawals", mutating(treasuryHandler.Withdraw))
	mux.Handle("GET /api/v1/treasury/balance", authed(http.HandlerFunc(treasuryHandler.GetBalance)))
	mux.Handle("GET /api/v1/treasury/entries", authed(http.HandlerFunc(treasuryHandler.ListEntries)))
	mux.Handle("POST /api/v1/treasury/movers", mutating(treasuryHandler.AddMover))
	mux.Handle("GET /api/v1/treasury/movers", authed(http.HandlerFunc(treasuryHandler.ListMovers)))
	mux.Handle("DELETE /api/v1/treasury/movers/{wallet}", mutating(treasuryHandler.RemoveMover))

	mux.Handle("POST /api/v1/streams", mutating(streamHandler.Create))
	mux.Handle("POST /api/v1/streams/batch", mutating(streamHandler.CreateBatch))
	mux.Handle("GET /api/v1/streams", authed(http.HandlerFunc(streamHandler.List)))
	mux.Handle("GET /api/v1/streams/{id}", authed(http.HandlerFunc(streamHandler.Get)))
	mux.Handle("GET /api/v1/streams/{id}/balance", authed(http.HandlerFunc(streamHandler.Balance)))
	mux.Handle("GET /api/v1/streams/{id}/events", authed(http.HandlerFunc(streamHandler.Events)))
	mux.Handle("PATCH /api/v1/streams/{id}", mutating(streamHandler.Update))
	mux.Handle("POST /api/v1/streams/{id}/pause", mutating(streamHandler.Pause))
	mux.Handle("POST /api/v1/streams/{id}/resume", mutating(streamHandler.Resume))
	mux.Handle("POST /api/v1/streams/{id}/withdraw", mutating(streamHandler.Withdraw))
	mux.Handle("POST /api/v1/streams/{id}/cancel", mutating(streamHandler.Cancel))

	root := middleware.Tracing(middleware.Logging(middleware.Recovery(mux)))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           root,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
