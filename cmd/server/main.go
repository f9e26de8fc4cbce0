package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/user/dopewars-engine/config"
	"github.com/user/dopewars-engine/internal/api"
	"github.com/user/dopewars-engine/internal/command"
	"github.com/user/dopewars-engine/internal/content"
	"github.com/user/dopewars-engine/internal/game"
	"github.com/user/dopewars-engine/internal/risk"
	"github.com/user/dopewars-engine/internal/tables"
	"github.com/user/dopewars-engine/internal/whatsapp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "./config/config.json", "Path to configuration file")
	envPath := flag.String("env", ".env", "Path to .env file")
	flag.Parse()

	// Load .env before anything reads the environment
	if err := config.LoadEnv(*envPath); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", *envPath, err)
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Set up logger
	logger := setupLogger(cfg.Server.LogLevel)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load content tables
	tbl, err := loadTables(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to load tables", zap.Error(err))
	}

	// Open snapshot store
	store, closeStore, err := game.OpenStore(cfg)
	if err != nil {
		logger.Fatal("Failed to open snapshot store",
			zap.String("backend", cfg.Storage.Backend),
			zap.Error(err))
	}
	defer closeStore()

	// Content source for events and busts
	source, err := content.FromConfig(ctx, cfg.Content, tbl, game.NewRand(cfg.Game.Seed), logger.Named("content"))
	if err != nil {
		logger.Fatal("Failed to create content source", zap.Error(err))
	}

	// Initialize game manager
	resolver := risk.NewResolver(source, tbl, cfg.Content.BustTimeoutDuration(), logger.Named("risk"))
	engine := game.NewEngine(tbl, cfg.Game, resolver)
	gameManager := game.NewGameManager(cfg, engine, store, source)
	gameManager.Logger = logger.Named("game")
	defer gameManager.Wait()

	// News feed
	hub := api.NewHub(logger.Named("hub"))
	go hub.Run(ctx)
	gameManager.SetNotifier(hub)

	dispatcher := command.NewDispatcher(gameManager, cfg.Game.Durations, logger.Named("command"))

	// Initialize WhatsApp transport
	var wa *whatsAppTransport
	if cfg.WhatsApp.Enabled {
		clientManager := whatsapp.NewClientManager(dispatcher, cfg, logger.Named("whatsapp"))
		clientManager.Restore()
		defer clientManager.DisconnectAll()

		wa = &whatsAppTransport{
			clients:  clientManager,
			qr:       whatsapp.NewQRCodeManager(clientManager, cfg, logger.Named("whatsapp")),
			sessions: whatsapp.NewSessionManager(cfg.WhatsApp.StoreDir, logger.Named("whatsapp")),
		}
	}

	server := setupHTTPServer(cfg, api.NewHandler(dispatcher, gameManager, logger.Named("api")), hub, wa, logger)

	// Start HTTP server
	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server stopped", zap.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", zap.Error(err))
	}
}

func setupLogger(level string) *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		config.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, _ := config.Build()
	return logger
}

func loadTables(cfg config.Config, logger *zap.Logger) (*tables.Tables, error) {
	if cfg.Game.TablesPath == "" {
		return tables.Default(), nil
	}
	tbl, err := tables.Load(cfg.Game.TablesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", cfg.Game.TablesPath, err)
	}
	logger.Info("Loaded tables",
		zap.String("path", cfg.Game.TablesPath),
		zap.Int("items", len(tbl.Items)),
		zap.Int("cities", len(tbl.Cities)))
	return tbl, nil
}

type whatsAppTransport struct {
	clients  *whatsapp.ClientManager
	qr       *whatsapp.QRCodeManager
	sessions *whatsapp.SessionManager
}

func setupHTTPServer(cfg config.Config, handler *api.Handler, hub *api.Hub, wa *whatsAppTransport, logger *zap.Logger) *http.Server {
	// Create router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	// Websocket connections outlive any request timeout
	router.Get("/ws", hub.ServeWs)

	router.Group(func(r chi.Router) {
		r.Use(middleware.Logger)
		r.Use(middleware.Timeout(60 * time.Second))

		handler.Routes(r)
		if wa != nil {
			whatsAppRoutes(r, wa, logger)
		}
	})

	// Create HTTP server
	return &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func whatsAppRoutes(r chi.Router, wa *whatsAppTransport, logger *zap.Logger) {
	// QR code generation endpoint
	r.Post("/qr", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			PhoneNumber string `json:"phone_number"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PhoneNumber == "" {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		qr, err := wa.qr.GenerateQRCode(r.Context(), req.PhoneNumber)
		if errors.Is(err, whatsapp.ErrAlreadyPaired) {
			http.Error(w, "Already paired", http.StatusConflict)
			return
		}
		if err != nil {
			logger.Error("Failed to generate QR code",
				zap.String("phone_number", req.PhoneNumber),
				zap.Error(err))
			http.Error(w, "Failed to generate QR code", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(qr)
	})

	// Session management endpoints
	r.Get("/sessions", func(w http.ResponseWriter, r *http.Request) {
		sessions, err := wa.sessions.ListSessions()
		if err != nil {
			logger.Error("Failed to list sessions", zap.Error(err))
			http.Error(w, "Failed to list sessions", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(sessions)
	})

	r.Delete("/sessions/{phone_number}/{session_id}", func(w http.ResponseWriter, r *http.Request) {
		phoneNumber := chi.URLParam(r, "phone_number")
		sessionID := chi.URLParam(r, "session_id")

		// Disconnect client if connected
		wa.clients.Disconnect(phoneNumber)

		if err := wa.sessions.DeleteSession(phoneNumber, sessionID); err != nil {
			logger.Error("Failed to delete session",
				zap.String("phone_number", phoneNumber),
				zap.String("session_id", sessionID),
				zap.Error(err))
			http.Error(w, "Failed to delete session", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	})
}
