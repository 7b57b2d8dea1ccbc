package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/tmiguel/saldo/internal/account"
	accountStore "github.com/tmiguel/saldo/internal/account/store"
	"github.com/tmiguel/saldo/internal/config"
	"github.com/tmiguel/saldo/internal/database"
	saldoHttp "github.com/tmiguel/saldo/internal/http"
	accountHandler "github.com/tmiguel/saldo/internal/http/account"
	importHandler "github.com/tmiguel/saldo/internal/http/importcsv"
	txHandler "github.com/tmiguel/saldo/internal/http/transaction"
	transferHandler "github.com/tmiguel/saldo/internal/http/transfer"
	"github.com/tmiguel/saldo/internal/importer"
	"github.com/tmiguel/saldo/internal/reconcile"
	reconcileStore "github.com/tmiguel/saldo/internal/reconcile/store"
	"github.com/tmiguel/saldo/internal/summary"
	summaryStore "github.com/tmiguel/saldo/internal/summary/store"
	"github.com/tmiguel/saldo/internal/transaction"
	txStore "github.com/tmiguel/saldo/internal/transaction/store"
	"github.com/tmiguel/saldo/internal/transfer"
	transferStore "github.com/tmiguel/saldo/internal/transfer/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if cfg.Auth.JWTSecret == "" {
		slog.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	db, err := database.New(context.Background(), cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var summaryCache summary.Cache

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		summaryCache = summary.NewRedisCache(client, slog.Default())

		defer client.Close()
	}

	accounts := accountStore.New(db)

	var (
		accountService     = account.NewService(accounts)
		transactionService = transaction.NewService(txStore.New(db, accounts))
		reconcileService   = reconcile.NewService(reconcileStore.New(db, accounts))
		transferService    = transfer.NewService(transferStore.New(db))
		importService      = importer.NewService()
		summaryService     = summary.NewService(summaryStore.New(db), summaryCache)
	)

	var (
		accountH     = accountHandler.NewHandler(accountService, summaryService)
		transactionH = txHandler.NewHandler(transactionService, summaryService)
		importH      = importHandler.NewHandler(importService, reconcileService, summaryService)
		transferH    = transferHandler.NewHandler(transferService)
	)

	router := saldoHttp.New(cfg.Auth.JWTSecret, accountH, transactionH, importH, transferH)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	slog.Info("starting server", "addr", server.Addr)

	if err := server.ListenAndServe(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
