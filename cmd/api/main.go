package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	internalauth "github.com/zipfood/reset-api/internal/auth"
	"github.com/zipfood/reset-api/internal/background"
	"github.com/zipfood/reset-api/internal/config"
	"github.com/zipfood/reset-api/internal/database"
	"github.com/zipfood/reset-api/internal/handlers"
	middlewareCustom "github.com/zipfood/reset-api/internal/middleware"
	"github.com/zipfood/reset-api/internal/ratelimit"
	"github.com/zipfood/reset-api/internal/repositories"
	"github.com/zipfood/reset-api/internal/routes"
	"github.com/zipfood/reset-api/internal/services"
	pkghttp "github.com/zipfood/reset-api/pkg/http"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Repositories
	accountRepo := repositories.NewAccountRepository(db)

	// Redis is optional. Without it the rate-limit buckets and the fallback
	// code store live in process memory, which is fine for a single node.
	var limiterStore ratelimit.Store = ratelimit.NewMemoryStore()
	var codeStore services.CodeStore = services.NewMemoryCodeStore()
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			pingCancel()
			logger.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		pingCancel()
		defer redisClient.Close()

		limiterStore = ratelimit.NewRedisStore(redisClient)
		codeStore = services.NewRedisCodeStore(redisClient)
		logger.Info("redis connected", slog.String("addr", cfg.Redis.Addr))
	}

	// Per-phone send limiter
	limiter := ratelimit.NewLimiter(limiterStore, ratelimit.Config{
		MaxPerWindow: cfg.SMS.MaxPerWindow,
		Window:       cfg.SMS.Window,
	}, logger)

	// SMS transport: Twilio when credentials are present, otherwise a mock
	// sender that logs the message body.
	var sender services.SMSSender
	if cfg.SMS.TwilioAccountSID != "" && cfg.SMS.TwilioAuthToken != "" {
		sender = services.NewTwilioSender(cfg.SMS.TwilioAccountSID, cfg.SMS.TwilioAuthToken, cfg.SMS.TwilioFromNumber, logger)
		logger.Info("twilio sender configured")
	} else {
		sender = services.NewMockSender(logger)
		logger.Warn("no twilio credentials, using mock SMS sender")
	}

	// Token manager
	tokenManager := internalauth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.ResetTokenExpiry,
	)

	// Optional password-changed email via SES
	var notifier services.Notifier
	if cfg.Notify.FromAddress != "" {
		sesNotifier, err := services.NewSESNotifier(cfg.Notify.AWSRegion, cfg.Notify.FromAddress, logger)
		if err != nil {
			logger.Error("failed to initialize SES notifier", slog.Any("error", err))
			os.Exit(1)
		}
		notifier = sesNotifier
		logger.Info("SES notifier configured")
	}

	// Services
	verificationService := services.NewVerificationService(
		accountRepo,
		limiter,
		sender,
		codeStore,
		logger,
		cfg.Auth.CodeExpiry,
		cfg.IsProduction(),
	)
	accountService := services.NewAccountService(accountRepo, verificationService, tokenManager, notifier, logger)

	// Handlers
	resetHandler := handlers.NewResetHandler(verificationService, accountService, tokenManager)
	loginHandler := handlers.NewLoginHandler(accountService)

	// Expired-code sweeper
	cleanupManager := background.NewCleanupManager(accountRepo, logger, cfg.Auth.CleanupInterval)

	// Setup CORS middleware
	corsConfig := middlewareCustom.DefaultCORSConfig()
	corsConfig.AllowedOrigins = cfg.Server.AllowedOrigins

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger, &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, resetHandler, loginHandler)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}
