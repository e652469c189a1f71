package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/garnizeh/hirehub/api"
	dbfs "github.com/garnizeh/hirehub/db"
	"github.com/garnizeh/hirehub/internal/account"
	"github.com/garnizeh/hirehub/internal/application"
	"github.com/garnizeh/hirehub/internal/config"
	"github.com/garnizeh/hirehub/internal/credential"
	"github.com/garnizeh/hirehub/internal/db"
	"github.com/garnizeh/hirehub/internal/job"
	"github.com/garnizeh/hirehub/internal/jobs"
	"github.com/garnizeh/hirehub/internal/metrics"
	"github.com/garnizeh/hirehub/internal/notify"
	"github.com/garnizeh/hirehub/internal/otp"
	"github.com/garnizeh/hirehub/internal/repository/sqlite"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	level := slog.LevelInfo
	if cfg.IsDevelopment() {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	api.SetLogger(logger)

	logger.Info("starting hirehub", slog.String("version", version), slog.String("build_time", buildTime), slog.String("env", cfg.Env))

	ctx := context.Background()

	conn, err := db.New(ctx, cfg.DatabasePath, logger)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	if err := db.Migrate(ctx, conn, dbfs.Migrations); err != nil {
		log.Fatalf("Failed to migrate DB: %v", err)
	}
	repo := sqlite.New(conn, logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewCollector(reg)

	creds, err := credential.New(credential.Options{
		Secret:        cfg.JWTSecret,
		Cost:          cfg.BcryptCost,
		TokenTTL:      cfg.TokenDuration,
		AdminTokenTTL: cfg.AdminTokenDuration,
	})
	if err != nil {
		log.Fatalf("Failed to init credentials: %v", err)
	}

	var notifier notify.Notifier = notify.NewLogNotifier(logger)
	if cfg.Mail.Provider == "sendgrid" {
		sg, err := notify.NewSendGridNotifier(notify.SendGridOptions{
			APIKey:    cfg.Mail.SendGridAPIKey,
			FromEmail: cfg.Mail.FromEmail,
			FromName:  cfg.Mail.FromName,
			Sandbox:   cfg.Mail.Sandbox,
		})
		if err != nil {
			log.Fatalf("Failed to init mail: %v", err)
		}
		notifier = sg
	}
	dispatcher := notify.NewDispatcher(notifier, repo, notify.DispatcherOptions{
		Timeout: cfg.Mail.Timeout,
		Logger:  logger,
		Metrics: rec,
	})

	otps := otp.NewMemoryStore()
	accounts := account.NewService(repo, repo, otps, creds, dispatcher, account.Options{
		OTPTTL:    cfg.OTP.TTL,
		OTPLength: cfg.OTP.Length,
		Logger:    logger,
		Metrics:   rec,
	})
	apps := application.NewService(repo, repo, repo, dispatcher, application.Options{Logger: logger, Metrics: rec})
	jobService, err := job.NewService(repo, repo, job.Options{Logger: logger})
	if err != nil {
		log.Fatalf("Failed to init jobs: %v", err)
	}

	limiter := api.NewRateLimiter(api.RateLimiterConfig{
		PerMinute: cfg.RateLimit.OTPPerMinute,
		Burst:     cfg.RateLimit.OTPBurst,
	})

	sched := jobs.NewScheduler(logger)
	for _, t := range []jobs.Task{
		jobs.SweepTask("otp-sweep", cfg.OTP.SweepSchedule, otps, logger),
		jobs.SweepTask("ratelimit-sweep", cfg.OTP.SweepSchedule, limiter, logger),
	} {
		if err := sched.Add(t); err != nil {
			log.Fatalf("Failed to schedule %s: %v", t.Name, err)
		}
	}
	sched.Start()

	handler := api.SetupRoutes(api.Deps{
		Version:        version,
		BuildTime:      buildTime,
		Accounts:       accounts,
		Applications:   apps,
		Jobs:           jobService,
		Notifications:  repo,
		Tokens:         creds,
		OTPLimiter:     limiter,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Metrics:        rec,
		Gatherer:       reg,
		Ping:           conn.GetConn().PingContext,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.APITimeout,
		WriteTimeout: cfg.APITimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", slog.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", slog.Any("err", err))
	}
	sched.Stop()

	if err := conn.Close(); err != nil {
		logger.Error("closing DB", slog.Any("err", err))
	}

	logger.Info("server exited")
}
