package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"

	"github.com/benvon/idgate/internal/config"
	"github.com/benvon/idgate/internal/handlers"
	"github.com/benvon/idgate/internal/logger"
	"github.com/benvon/idgate/internal/middleware"
	"github.com/benvon/idgate/internal/services/oidc"
	"github.com/benvon/idgate/internal/telemetry"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync(zapLogger)
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("idp_base_url", cfg.IDPBaseURL),
		zap.String("client_name", cfg.ClientName),
		zap.Bool("verify_audience", cfg.VerifyAudience),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// Initialize OpenTelemetry if enabled
	var tracerProvider interface{ Shutdown(context.Context) error }
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(context.Background(), "idgate", cfg.OTELEndpoint)
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				tracerProvider = tp
				zapLogger.Info("otel_tracer_initialized",
					zap.String("endpoint", cfg.OTELEndpoint),
				)
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	// Build the authentication pipeline. Key loading is eager: a provider
	// that is down or misconfigured aborts startup.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	resolver, err := oidc.NewKeyResolver(startupCtx, cfg.IDPBaseURL,
		oidc.WithRefreshOnUnknownKey(cfg.RefreshOnUnknownKey),
	)
	if err != nil {
		zapLogger.Fatal("failed_to_initialize_key_resolver", zap.Error(err))
	}
	zapLogger.Info("signing_keys_loaded")

	verifier, err := oidc.NewVerifier(resolver, oidc.VerifierConfig{
		BaseURL:        cfg.IDPBaseURL,
		ClientName:     cfg.ClientName,
		Scopes:         cfg.Scopes,
		ClientID:       cfg.ClientID,
		VerifyAudience: cfg.VerifyAudience,
		ExtraAudiences: cfg.ExtraAudiences,
		AutoError:      cfg.AuthAutoError,
	})
	if err != nil {
		zapLogger.Fatal("failed_to_initialize_verifier", zap.Error(err))
	}

	enricher := oidc.NewEnricher(oidc.WithUserInfoTTL(cfg.UserInfoTTL))
	authenticator := oidc.NewAuthenticator(verifier, enricher)

	// Initialize handlers
	healthChecker := handlers.NewHealthChecker(cfg.IDPBaseURL)
	versionHandler := handlers.NewVersionHandler(cfg.ClientName, version)

	// Setup router
	r := mux.NewRouter()

	if cfg.OTELEnabled && tracerProvider != nil {
		r.Use(otelmux.Middleware("idgate"))
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.CORS(middleware.AllowedOrigins(cfg.CORSExtraOrigins)))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(zapLogger))

	rateLimitMW, err := middleware.RateLimit(cfg.RateLimit)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limiter", zap.Error(err))
	}

	// Public routes
	r.HandleFunc("/api/health", healthChecker.HealthCheck).Methods("GET")
	r.HandleFunc("/api/version", versionHandler.Version).Methods("GET")

	// OpenAPI spec (public)
	openAPIPath := filepath.Join("api", "openapi.yaml")
	openAPIHandler := handlers.NewOpenAPIHandler(openAPIPath)
	openAPIHandler.RegisterRoutes(r)

	// Protected routes
	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(middleware.Auth(authenticator, zapLogger))
	protected.Use(rateLimitMW)
	protected.HandleFunc("/token_info", handlers.TokenInfo).Methods("GET")

	// Catch-all OPTIONS handler so preflight requests succeed on every route
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		zapLogger.Info("server_starting",
			zap.String("port", cfg.ServerPort),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}
