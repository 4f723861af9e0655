// Package app wires configuration, storage, adapters, features, and routes
// into a runnable HTTP application.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"newswatch/features/document"
	featmonitor "newswatch/features/monitor"
	"newswatch/internal/adapter/article"
	"newswatch/internal/adapter/gemini"
	"newswatch/internal/adapter/newsapi"
	"newswatch/internal/adapter/pushover"
	"newswatch/internal/config"
	"newswatch/internal/middleware"
	"newswatch/internal/monitor"
	"newswatch/internal/retrieval"
	"newswatch/internal/seen"
	"newswatch/internal/settings"
)

type App struct {
	Handler         http.Handler
	Scheduler       *monitor.Scheduler
	DocumentService *document.Service

	port int
}

func New(cfg *config.Config, db *sql.DB, pub monitor.EventPublisher, logger *slog.Logger) (*App, error) {
	// Feature: Settings
	settingsRepo := settings.NewPostgresRepo(db)
	settingsService := settings.NewService(settingsRepo)
	seedSettings(cfg, settingsService)
	settingsHandler := settings.NewHandler(settingsService)

	// Adapters
	embedder := gemini.NewEmbedder(cfg.GeminiAPIKey)
	summarizer := gemini.NewSummarizer(cfg.GeminiAPIKey)
	extractor := article.NewExtractor()
	news := &dynamicNewsAPI{settings: settingsService, fallbackKey: cfg.NewsAPIKey}
	notifier := &dynamicPushover{settings: settingsService, fallbackToken: cfg.PushoverToken, fallbackUser: cfg.PushoverUser}

	// Feature: Document
	queryLogger, err := retrieval.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = retrieval.NewQueryLogger(os.Stdout)
	}
	retrievalService := retrieval.NewService(embedder, cfg.MaxChunkTokens, queryLogger)
	documentService := document.NewService(retrievalService, extractor, summarizer)
	documentHandler := document.NewHandler(documentService, cfg.SearchTopK)

	// Feature: Monitor
	lookback := time.Duration(cfg.MonitorLookbackHours) * time.Hour
	deliveriesRepo := featmonitor.NewPostgresRepo(db)
	seenStore := seen.NewStore(cfg.SeenPath)
	cycle := monitor.NewCycle(monitor.CycleParams{
		Searcher:   news,
		Extractor:  extractor,
		Summarizer: summarizer,
		Notifier:   notifier,
		Store:      seenStore,
		Settings:   settingsService,
		Publisher:  pub,
		Recorder:   deliveriesRepo,
		Defaults:   monitorDefaults(cfg),
		Lookback:   lookback,
		Logger:     logger,
	})
	scheduler := monitor.NewScheduler(cycle, settingsService, time.Duration(cfg.MonitorIntervalSecs)*time.Second, logger)
	monitorService := featmonitor.NewService(scheduler, deliveriesRepo, news, notifier, settingsService, seenStore, cfg.MonitorQuery, cfg.MonitorLanguage, lookback)
	monitorHandler := featmonitor.NewHandler(monitorService)

	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	mux := http.NewServeMux()

	mux.Handle("POST /documents", middleware.CorrelationID(enableCORS(documentHandler.Create)))
	mux.Handle("GET /documents", middleware.CorrelationID(enableCORS(documentHandler.List)))
	mux.Handle("GET /documents/{id}/search", middleware.CorrelationID(enableCORS(documentHandler.Search)))
	mux.Handle("POST /documents/{id}/summary", middleware.CorrelationID(enableCORS(documentHandler.Summarize)))
	mux.Handle("DELETE /documents/{id}", middleware.CorrelationID(enableCORS(documentHandler.Delete)))

	mux.Handle("GET /settings", middleware.CorrelationID(enableCORS(settingsHandler.GetSettings)))
	mux.Handle("PUT /settings", middleware.CorrelationID(enableCORS(settingsHandler.UpdateSettings)))

	mux.Handle("GET /monitor/status", middleware.CorrelationID(enableCORS(monitorHandler.Status)))
	mux.Handle("POST /monitor/start", middleware.CorrelationID(enableCORS(monitorHandler.Start)))
	mux.Handle("POST /monitor/stop", middleware.CorrelationID(enableCORS(monitorHandler.Stop)))
	mux.Handle("POST /monitor/run", middleware.CorrelationID(enableCORS(monitorHandler.Run)))
	mux.Handle("GET /monitor/results", middleware.CorrelationID(enableCORS(monitorHandler.Results)))
	mux.Handle("POST /monitor/test", middleware.CorrelationID(enableCORS(monitorHandler.Test)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return &App{
		Handler:         mux,
		Scheduler:       scheduler,
		DocumentService: documentService,
		port:            cfg.ServerPort,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.port),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		a.Scheduler.Disable()
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func monitorDefaults(cfg *config.Config) settings.Settings {
	return settings.Settings{
		MonitorQuery:   cfg.MonitorQuery,
		Language:       cfg.MonitorLanguage,
		MaxItemsPerRun: cfg.MonitorMaxItems,
		IntervalSecs:   cfg.MonitorIntervalSecs,
		PreviewOnly:    cfg.MonitorPreviewOnly,
	}
}

// seedSettings copies environment defaults into the settings row on first
// boot, so runtime edits start from the deployed configuration. Existing
// values are never overwritten.
func seedSettings(cfg *config.Config, svc *settings.Service) {
	ctx := context.Background()
	set, err := svc.Get(ctx)
	if err != nil {
		slog.Warn("failed to fetch settings for seeding", "error", err)
		return
	}

	changed := false
	if set.MonitorQuery == "" && cfg.MonitorQuery != "" {
		set.MonitorQuery = cfg.MonitorQuery
		changed = true
	}
	if set.NewsAPIKey == "" && cfg.NewsAPIKey != "" {
		set.NewsAPIKey = cfg.NewsAPIKey
		changed = true
	}
	if set.PushoverToken == "" && cfg.PushoverToken != "" {
		set.PushoverToken = cfg.PushoverToken
		changed = true
	}
	if set.PushoverUser == "" && cfg.PushoverUser != "" {
		set.PushoverUser = cfg.PushoverUser
		changed = true
	}

	if changed {
		if err := svc.Update(ctx, set); err != nil {
			slog.Warn("failed to seed settings from environment", "error", err)
		} else {
			slog.Info("seeded settings from environment")
		}
	}
}

// dynamicNewsAPI resolves the NewsAPI key at call time so that a key saved
// through the settings endpoint takes effect without a restart.
type dynamicNewsAPI struct {
	settings    *settings.Service
	fallbackKey string
}

func (d *dynamicNewsAPI) client(ctx context.Context) *newsapi.Client {
	key := d.fallbackKey
	if set, err := d.settings.Get(ctx); err == nil && set != nil && set.NewsAPIKey != "" {
		key = set.NewsAPIKey
	}
	return newsapi.NewClient(key)
}

func (d *dynamicNewsAPI) Search(ctx context.Context, query string, from, to time.Time, language string) ([]monitor.Article, error) {
	return d.client(ctx).Search(ctx, query, from, to, language)
}

func (d *dynamicNewsAPI) PickRandom(ctx context.Context, query string, from, to time.Time, language string) (*monitor.Article, error) {
	return d.client(ctx).PickRandom(ctx, query, from, to, language)
}

// dynamicPushover resolves Pushover credentials at call time, same deal as
// dynamicNewsAPI.
type dynamicPushover struct {
	settings      *settings.Service
	fallbackToken string
	fallbackUser  string
}

func (d *dynamicPushover) Send(ctx context.Context, title, message, url string) error {
	token, user := d.fallbackToken, d.fallbackUser
	if set, err := d.settings.Get(ctx); err == nil && set != nil {
		if set.PushoverToken != "" {
			token = set.PushoverToken
		}
		if set.PushoverUser != "" {
			user = set.PushoverUser
		}
	}
	return pushover.NewClient(token, user).Send(ctx, title, message, url)
}
