package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/twhitfield/ghost-discord-bot/internal/announcer"
	"github.com/twhitfield/ghost-discord-bot/internal/cache"
	"github.com/twhitfield/ghost-discord-bot/internal/config"
	"github.com/twhitfield/ghost-discord-bot/internal/ghost"
	"github.com/twhitfield/ghost-discord-bot/internal/notifier"
	"github.com/twhitfield/ghost-discord-bot/internal/search"
	"github.com/twhitfield/ghost-discord-bot/internal/store"
)

// Server carries the wired components behind the admin HTTP surface.
// store and announcer may be nil when the durable store failed to open;
// the bot keeps serving content and search in that degraded mode.
type Server struct {
	cache     *cache.Cache
	ghost     *ghost.Client
	search    *search.Service
	store     *store.Store
	announcer *announcer.Announcer
}

func main() {
	if err := godotenv.Load(); err == nil {
		slog.Info("Loaded environment from .env file")
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	slog.Info("Starting Ghost Discord bot...")
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Critical error loading configuration", "error", err)
		os.Exit(1)
	}

	c := cache.New()
	defer c.Close()

	ghostClient := ghost.New(cfg.GhostAPIURL, cfg.GhostContentAPIKey, c)
	searchSvc := search.New(ghostClient, c)

	srv := &Server{
		cache:  c,
		ghost:  ghostClient,
		search: searchSvc,
	}

	// A broken durable store disables the announcer and analytics but is
	// never fatal: the content and search surfaces keep working.
	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		slog.Error("Failed to open state store, auto-posting disabled", "path", cfg.DatabasePath, "error", err)
	} else {
		srv.store = st
		srv.announcer = announcer.New(ghostClient, st, notifier.New(cfg.DiscordBotToken), cfg)
		srv.announcer.Initialize()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, `{"status":"ok"}`)
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("POST /check", srv.CheckHandler)
	mux.HandleFunc("POST /refresh", srv.RefreshHandler)
	mux.HandleFunc("GET /search", srv.SearchHandler)
	mux.HandleFunc("GET /stats", srv.StatsHandler)
	mux.HandleFunc("PUT /settings/{key}", srv.SettingHandler)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		sig := <-sigCh
		slog.Info("Received signal, shutting down gracefully...", "signal", sig)

		if srv.announcer != nil {
			srv.announcer.Cleanup()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		}
	}()

	slog.Info("Listening on port", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("Failed to listen and serve", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped.")
}

// CheckHandler triggers one announcer cycle. The work runs asynchronously
// so the response isn't blocked by Ghost and Discord round trips.
func (s *Server) CheckHandler(w http.ResponseWriter, r *http.Request) {
	if s.announcer == nil {
		http.Error(w, "announcer unavailable: state store failed to open", http.StatusServiceUnavailable)
		return
	}

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("Panic in announcer check", "panic", rec)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
		defer cancel()
		if err := s.announcer.CheckOnce(ctx); err != nil {
			slog.Error("Error in manual announcer check", "error", err)
		}
	}()

	w.WriteHeader(http.StatusAccepted)
	fmt.Fprintln(w, "Announcer check started.")
}

// RefreshHandler rebuilds the search index from a fresh content snapshot.
func (s *Server) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	if err := s.search.Refresh(ctx); err != nil {
		slog.Error("Search index refresh failed", "error", err)
		http.Error(w, "refresh failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, s.search.GetStats())
}

// SearchHandler answers ?q= queries. With suggest=true it returns title
// suggestions for a partial query instead of full results.
func (s *Server) SearchHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		http.Error(w, "missing q parameter", http.StatusBadRequest)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	if r.URL.Query().Get("suggest") == "true" {
		suggestions, err := s.search.Suggestions(r.Context(), q, limit)
		if err != nil {
			http.Error(w, "suggestions failed: "+err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"query": q, "suggestions": suggestions})
		return
	}

	results, err := s.search.Search(r.Context(), q, search.Options{
		Type:  r.URL.Query().Get("type"),
		Limit: limit,
	})
	if err != nil {
		http.Error(w, "search failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	// Analytics are fire and forget: a failed write never affects the
	// search outcome.
	if s.store != nil {
		if err := s.store.RecordSearch(r.Context(), store.SearchQuery{
			Query:   q,
			UserID:  "admin-api",
			Results: results.Total,
		}); err != nil {
			slog.Warn("Failed to record search query", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, results)
}

// StatsHandler reports cache, search, announcer and usage statistics.
func (s *Server) StatsHandler(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"cache":  s.cache.GetStats(),
		"search": s.search.GetStats(),
	}
	if s.announcer != nil {
		payload["announcer"] = s.announcer.GetStatus()
	}
	if s.store != nil {
		since := time.Now().AddDate(0, 0, -7)
		analytics := map[string]any{}
		if commands, err := s.store.TopCommands(r.Context(), since, 10); err == nil {
			analytics["top_commands"] = commands
		}
		if searches, err := s.store.TopSearches(r.Context(), since, 10); err == nil {
			analytics["top_searches"] = searches
		}
		if content, err := s.store.TopContent(r.Context(), since, 10); err == nil {
			analytics["top_content"] = content
		}
		payload["analytics"] = analytics
	}
	writeJSON(w, http.StatusOK, payload)
}

// SettingHandler sets a named bot setting, e.g. the autopost_enabled
// kill switch.
func (s *Server) SettingHandler(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "state store unavailable", http.StatusServiceUnavailable)
		return
	}

	key := r.PathValue("key")
	var body struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body, expected {\"value\": \"...\"}", http.StatusBadRequest)
		return
	}

	if err := s.store.SetSetting(r.Context(), key, body.Value); err != nil {
		slog.Error("Failed to save setting", "key", key, "error", err)
		http.Error(w, "save failed", http.StatusInternalServerError)
		return
	}
	slog.Info("Setting updated", "key", key, "value", body.Value)
	writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": body.Value})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
