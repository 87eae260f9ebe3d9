package cmd

import (
	"context"
	cryptorand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"anon-match-backend/internal/config"
	"anon-match-backend/internal/db"
	"anon-match-backend/internal/handlers"
	"anon-match-backend/internal/middleware"
	"anon-match-backend/internal/repository"
	"anon-match-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	// Connect to database and run migrations
	ctx := context.Background()
	pool, err := db.Open(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}
	log.Info().Msg("Database connection established")

	// Initialize repositories
	profileRepo := repository.NewProfileRepository(pool)
	ledgerRepo := repository.NewLedgerRepository(pool)
	entitlementRepo := repository.NewEntitlementRepository(pool)

	// Initialize services
	authService := services.NewAuthService(cfg.JWT.Secret)
	push, err := services.NewPushSender(cfg.APNS)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create push sender")
	}
	hub := services.NewHub(profileRepo, push)
	registry := services.NewSessionRegistry()
	selector := services.NewSelector(profileRepo, rand.New(rand.NewSource(cryptoSeed())))
	match := services.NewMatchWorkflow(profileRepo, ledgerRepo, selector, registry, hub)
	relay := services.NewRelay(registry, profileRepo, hub, cfg.Operator, cfg.Relay.MaxPayloadBytes)
	feedback := services.NewFeedbackService(profileRepo, ledgerRepo, registry, hub)
	entitlements := services.NewEntitlementService(profileRepo, entitlementRepo, hub, cfg.Entitlements)
	profiles := services.NewProfileService(profileRepo, ledgerRepo, registry, match, hub, cfg.Matching)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	profileHandler := handlers.NewProfileHandler(profiles)
	matchHandler := handlers.NewMatchHandler(match)
	sessionHandler := handlers.NewSessionHandler(registry, relay, feedback, hub)
	feedbackHandler := handlers.NewFeedbackHandler(feedback)
	entitlementHandler := handlers.NewEntitlementHandler(entitlements)
	wsHandler := handlers.NewWebSocketHandler(hub, authService)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/auth/token", authHandler.IssueToken)
		r.Post("/webhooks/purchase", entitlementHandler.ConfirmPurchase)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(authService))
			r.Put("/profile", profileHandler.Register)
			r.Get("/profile", profileHandler.Get)
			r.Delete("/profile", profileHandler.Reset)
			r.Put("/profile/push-token", profileHandler.SetPushToken)
			r.Post("/candidates/next", matchHandler.RequestCandidate)
			r.Post("/likes", matchHandler.Like)
			r.Post("/dislikes", matchHandler.Dislike)
			r.Delete("/session", sessionHandler.Stop)
			r.Post("/session/messages", sessionHandler.SendMessage)
			r.Post("/sessions", sessionHandler.Reopen)
			r.Post("/feedback", feedbackHandler.Submit)
			r.Get("/affinities", feedbackHandler.ListAffinities)
			r.Post("/promo/redeem", entitlementHandler.RedeemCode)
		})
	})

	// WebSocket route
	r.Get("/ws", wsHandler.HandleWebSocket)

	// Health and metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy"}`))
	})
	r.Method("GET", "/metrics", promhttp.Handler())

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// cryptoSeed seeds the selector RNG from the system entropy source
func cryptoSeed() int64 {
	var buf [8]byte
	if _, err := cryptorand.Read(buf[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(buf[:]))
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
