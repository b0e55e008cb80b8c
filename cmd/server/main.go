package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/tarkov-debrief/debrief/internal/asset"
	"github.com/tarkov-debrief/debrief/internal/auth"
	"github.com/tarkov-debrief/debrief/internal/catalog"
	"github.com/tarkov-debrief/debrief/internal/config"
	"github.com/tarkov-debrief/debrief/internal/export"
	"github.com/tarkov-debrief/debrief/internal/live"
	"github.com/tarkov-debrief/debrief/internal/logging"
	mw "github.com/tarkov-debrief/debrief/internal/middleware"
	"github.com/tarkov-debrief/debrief/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	loader := asset.NewLoader(cfg.AssetDir, nil)
	exports := export.NewStore(cfg.ExportCapacity)

	registry := session.NewRegistry(session.ConfigFrom(cfg), loader, exports, slog.Default())
	defer registry.Close()

	authService := auth.NewService(cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)

	sessionHandler := session.NewHandler(registry, authService)
	assetHandler := asset.NewHandler(cfg.AssetDir)
	exportHandler := export.NewHandler(exports)

	hub := live.NewHub()
	go hub.Run()
	liveHandler := live.NewHandler(hub, registry, mw.OriginPatterns(cfg.AllowedOrigins))

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.AllowedOrigins))

	// Preflight for every route; CORS answers it
	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	r.HandleFunc("/assets/upload", assetHandler.Upload).Methods("POST", "OPTIONS")
	r.PathPrefix("/assets/").Handler(assetHandler.Serve()).Methods("GET")

	r.HandleFunc("/exports/{exportId}", exportHandler.Download).Methods("GET")

	r.HandleFunc("/api/maps", listHandler(catalog.Maps)).Methods("GET")
	r.HandleFunc("/api/markers", listHandler(catalog.Markers)).Methods("GET")

	// Creating a session is public and returns its token
	r.HandleFunc("/api/sessions", sessionHandler.Create).Methods("POST", "OPTIONS")

	api := r.PathPrefix("/api/sessions/{sessionId}").Subrouter()
	api.Use(authService.Middleware)

	api.HandleFunc("", sessionHandler.Get).Methods("GET")
	api.HandleFunc("", sessionHandler.Delete).Methods("DELETE")
	api.HandleFunc("/token", authHandler.Refresh).Methods("POST")
	api.HandleFunc("/map", sessionHandler.LoadMap).Methods("POST")
	api.HandleFunc("/tool", sessionHandler.SelectTool).Methods("POST")
	api.HandleFunc("/color", sessionHandler.SetColor).Methods("POST")
	api.HandleFunc("/marker", sessionHandler.SelectMarker).Methods("POST")
	api.HandleFunc("/resize", sessionHandler.Resize).Methods("POST")
	api.HandleFunc("/undo", sessionHandler.Undo).Methods("POST")
	api.HandleFunc("/redo", sessionHandler.Redo).Methods("POST")
	api.HandleFunc("/save", sessionHandler.Save).Methods("POST")
	api.HandleFunc("/render", sessionHandler.Render).Methods("GET")

	// WebSocket endpoint, token via query param
	ws := r.PathPrefix("/ws/sessions/{sessionId}").Subrouter()
	ws.Use(authService.Middleware)
	ws.HandleFunc("", liveHandler.ServeWS)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Close live connections before the sessions they feed
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "assets", cfg.AssetDir)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func listHandler(list func() []catalog.Entry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(list())
	}
}
