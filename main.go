package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/username/banksync/src/bank"
	"github.com/username/banksync/src/config"
	"github.com/username/banksync/src/database"
	"github.com/username/banksync/src/handlers"
	"github.com/username/banksync/src/logger"
	"github.com/username/banksync/src/metrics"
	"github.com/username/banksync/src/repository/sqlite"
	"github.com/username/banksync/src/syncer"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			logger.L.Warn("Rate limit exceeded", "path", r.URL.Path)
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	mode := "serve"
	args := os.Args[1:]
	if len(args) > 0 {
		mode = args[0]
		args = args[1:]
	}

	switch mode {
	case "serve":
		runServe()
	case "sync":
		runSyncCommand(args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q (expected 'serve' or 'sync')\n", mode)
		os.Exit(2)
	}
}

func buildRunner() (*syncer.Runner, *metrics.Collector, bank.Gateway, *sqlite.AccountRepository, *sqlite.TransactionRepository) {
	database.InitDB(config.Cfg.DatabasePath)
	database.RunMigrations(config.Cfg.DatabasePath)

	accountRepo := sqlite.NewAccountRepository(database.DB)
	txRepo := sqlite.NewTransactionRepository(database.DB)

	gateway := bank.NewClient(bank.ClientConfig{
		BaseURL:       config.Cfg.BankAPIBaseURL,
		TokenURL:      config.Cfg.BankAPITokenURL,
		ClientID:      config.Cfg.BankAPIClientID,
		ClientSecret:  config.Cfg.BankAPIClientSecret,
		WebhookSecret: config.Cfg.BankWebhookSecret,
		Timeout:       config.Cfg.BankAPITimeout,
		RatePerSecond: config.Cfg.BankAPIRatePerSecond,
	})

	collector := metrics.NewCollector()
	maxSpan := time.Duration(config.Cfg.SyncChunkMaxDays) * 24 * time.Hour

	orchestrator := syncer.NewOrchestrator(gateway, accountRepo, txRepo, maxSpan, syncer.SleepPacer, nil)

	defaultOpts := syncer.Options{RequestDelay: config.Cfg.SyncRequestDelay}
	if config.Cfg.SyncFromDate != nil {
		defaultOpts.EarliestSyncDate = *config.Cfg.SyncFromDate
	}

	runner := syncer.NewRunner(orchestrator, defaultOpts, collector)
	return runner, collector, gateway, accountRepo, txRepo
}

func runServe() {
	runner, collector, gateway, accountRepo, txRepo := buildRunner()

	if config.Cfg.WebhookPublicURL != "" {
		if err := gateway.RegisterWebhook(context.Background(), config.Cfg.WebhookPublicURL); err != nil {
			logger.L.Error("Webhook registration failed, continuing without push updates", "error", err)
		}
	}

	defaultOpts := syncer.Options{RequestDelay: config.Cfg.SyncRequestDelay}
	if config.Cfg.SyncFromDate != nil {
		defaultOpts.EarliestSyncDate = *config.Cfg.SyncFromDate
	}

	syncHandler := handlers.NewSyncHandler(runner, defaultOpts)
	webhookHandler := handlers.NewWebhookHandler(gateway, accountRepo, txRepo, collector,
		config.Cfg.AccountCacheTTL)

	if config.Cfg.SyncInterval > 0 {
		go func() {
			ticker := time.NewTicker(config.Cfg.SyncInterval)
			defer ticker.Stop()
			for range ticker.C {
				if _, err := runner.Run(context.Background()); err != nil {
					logger.L.Error("Scheduled sync failed", "error", err)
				}
			}
		}()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(handlers.ContextualLoggerMiddleware)
	r.Use(rateLimitMiddleware)

	r.Get("/healthz", syncHandler.HandleHealthz)
	r.Handle("/metrics", collector.Handler())
	r.Post("/webhooks/bank", webhookHandler.HandleBankWebhook)
	r.Route("/api", func(r chi.Router) {
		r.Post("/sync", syncHandler.HandleTriggerSync)
	})

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute, // manual sync runs inside the request
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stdlog.Fatalf("Failed to start server: %v", err)
	}
}

// runSyncCommand runs one sync and exits non-zero when any account or chunk
// failed. An explicit --from takes precedence over SYNC_FROM_DATE and forces
// a backfill from that date.
func runSyncCommand(args []string) {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	fromStr := fs.String("from", "", "force re-sync from this date (YYYY-MM-DD), overriding stored checkpoints")
	delayMs := fs.Int("delay-ms", int(config.Cfg.SyncRequestDelay/time.Millisecond), "delay between bank API requests in milliseconds")
	fs.Parse(args)

	opts := syncer.Options{
		RequestDelay: time.Duration(*delayMs) * time.Millisecond,
	}
	if *fromStr != "" {
		from, err := time.Parse("2006-01-02", *fromStr)
		if err != nil {
			stdlog.Fatalf("invalid --from date %q: %v", *fromStr, err)
		}
		opts.EarliestSyncDate = from
		opts.ForceFromDate = true
	} else if config.Cfg.SyncFromDate != nil {
		opts.EarliestSyncDate = *config.Cfg.SyncFromDate
	}

	runner, _, _, _, _ := buildRunner()

	result, err := runner.RunWith(context.Background(), opts)
	if err != nil {
		stdlog.Fatalf("sync failed: %v", err)
	}

	encoded, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(encoded))

	if result.HasErrors() {
		os.Exit(1)
	}
}
