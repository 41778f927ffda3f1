package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/DeafMist/news-verifier/internal/config"
	"github.com/DeafMist/news-verifier/internal/credibility"
	"github.com/DeafMist/news-verifier/internal/elasticsearch"
	"github.com/DeafMist/news-verifier/internal/logger"
	"github.com/DeafMist/news-verifier/internal/models"
	"github.com/DeafMist/news-verifier/internal/trust"
)

// maxItemBytes bounds the request body per submitted item.
const maxItemBytes = 16 << 10

type newsStore interface {
	Health(ctx context.Context) error
	SearchNews(ctx context.Context, params elasticsearch.SearchParams) (*elasticsearch.SearchResult, error)
}

type verifier interface {
	Verify(ctx context.Context, items []models.NewsItem) ([]models.VerifiedItem, error)
}

func main() {
	log := logger.New("api")
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	esClient, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
	if err != nil {
		log.Error("init elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}

	registry, closeRegistry, err := trust.Build(ctx, cfg.TrustOptions())
	if err != nil {
		log.Error("init trust registry", slog.Any("err", err))
		os.Exit(1)
	}
	defer closeRegistry()

	engine, err := credibility.New(cfg.EngineConfig(), registry, log)
	if err != nil {
		log.Error("init credibility engine", slog.Any("err", err))
		os.Exit(1)
	}

	srv := &server{log: log, cfg: cfg, es: esClient, engine: engine}

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	go func() {
		log.Info("api server starting",
			slog.String("addr", cfg.BindAddr),
			slog.Float64("similarity_threshold", cfg.SimilarityThreshold),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
}

type server struct {
	log    *slog.Logger
	cfg    *config.API
	es     newsStore
	engine verifier
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/news", s.handleSearch)
	r.Post("/verify", s.handleVerify)
	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.es.Health(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	q := r.URL.Query()
	params := elasticsearch.SearchParams{
		Query:          strings.TrimSpace(q.Get("q")),
		Keywords:       parseCSV(q.Get("keywords")),
		Source:         strings.TrimSpace(q.Get("source")),
		From:           clampInt(q.Get("from"), 0, 10_000),
		Size:           clampInt(q.Get("size"), s.cfg.DefaultPage, s.cfg.MaxPage),
		Sort:           strings.TrimSpace(q.Get("sort")),
		Start:          parseTime(q.Get("start")),
		End:            parseTime(q.Get("end")),
		MinCredibility: parseScore(q.Get("min_credibility")),
		ConfidentOnly:  parseBool(q.Get("confident")),
		ClusterID:      strings.TrimSpace(q.Get("cluster")),
	}

	result, err := s.es.SearchNews(ctx, params)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *server) handleVerify(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, int64(s.cfg.MaxVerifyItems)*maxItemBytes)

	var items []models.NewsItem
	if err := json.NewDecoder(body).Decode(&items); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
		return
	}
	if len(items) > s.cfg.MaxVerifyItems {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: fmt.Sprintf("too many items: %d > %d", len(items), s.cfg.MaxVerifyItems),
		})
		return
	}
	for i, item := range items {
		if strings.TrimSpace(item.Title) == "" || strings.TrimSpace(item.SourceID) == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error: fmt.Sprintf("item %d: title and source_id are required", i),
			})
			return
		}
	}

	verified, err := s.engine.Verify(r.Context(), items)
	if err != nil {
		s.log.Warn("verify failed", slog.Any("err", err), slog.Int("items", len(items)))
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, verified)
}

func parseTime(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return &ts
	}
	return nil
}

// parseScore accepts an integer credibility in [0,10]; anything else means no filter.
func parseScore(raw string) *int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v < credibility.MinScore || v > credibility.MaxScore {
		return nil
	}
	return &v
}

func parseBool(raw string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && v
}

func parseCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func clampInt(raw string, fallback, max int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	if value <= 0 {
		return fallback
	}
	if value > max {
		return max
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
