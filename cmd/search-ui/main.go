// Command search-ui serves the car search page and its JSON API. Queries are
// read-only: the server embeds the query (text via Ollama, image via CLIP),
// searches the matching Qdrant collection, and renders the top matches.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/CarSeekAI/carseek-mvp/engine/search"
	"github.com/CarSeekAI/carseek-mvp/engine/semantic"
	"github.com/CarSeekAI/carseek-mvp/pkg/config"
	"github.com/CarSeekAI/carseek-mvp/pkg/embed"
	"github.com/CarSeekAI/carseek-mvp/pkg/metrics"
	"github.com/CarSeekAI/carseek-mvp/pkg/mid"
	"github.com/CarSeekAI/carseek-mvp/pkg/resilience"
)

var met = metrics.New()

var (
	mQueries   = func(modality string) *metrics.Counter { return met.Counter(metrics.WithLabels("carseek_ui_queries_total", "modality", modality), "Search queries served") }
	mErrors    = func(modality string) *metrics.Counter { return met.Counter(metrics.WithLabels("carseek_ui_query_errors_total", "modality", modality), "Search queries that failed") }
	mQueryDur  = met.Histogram("carseek_ui_query_duration_seconds", "End-to-end query latency", nil)
	mUploadsKB = met.Histogram("carseek_ui_upload_kilobytes", "Uploaded image size", []float64{16, 64, 256, 1024, 4096, 20480})
)

// serverConfig holds all environment-based configuration.
type serverConfig struct {
	Port       string
	QdrantAddr string
	Cloud      bool
	APIKey     string
	Region     string
	CORSOrigin string
	ConfigFile string
}

func loadServerConfig() serverConfig {
	return serverConfig{
		Port:       envOr("PORT", "8080"),
		QdrantAddr: envOr("QDRANT_ADDR", "localhost:6334"),
		Cloud:      envOr("QDRANT_CLOUD", "") == "true",
		APIKey:     envOr("QDRANT_API_KEY", ""),
		Region:     envOr("QDRANT_REGION", "us-east-1"),
		CORSOrigin: envOr("CORS_ORIGIN", "*"),
		ConfigFile: envOr("CARSEEK_CONFIG", ""),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	godotenv.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(loadServerConfig(), logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(sc serverConfig, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(sc.ConfigFile)
	if err != nil {
		return err
	}

	// --- Connect to Qdrant: both collections share one connection ---
	conn, err := semantic.ConnectConfig{
		Addr:   sc.QdrantAddr,
		Cloud:  sc.Cloud,
		APIKey: sc.APIKey,
		Region: sc.Region,
	}.Dial()
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer conn.Close()

	texts := semantic.NewWithConn(conn, cfg.Collections.Text)
	images := semantic.NewWithConn(conn, cfg.Collections.Image)

	// --- Embedding providers behind one circuit breaker ---
	textEmb := embed.NewOllamaClient(cfg.Providers.OllamaURL, cfg.Providers.OllamaModel)
	imageEmb := embed.NewCLIPClient(cfg.Providers.CLIPURL, cfg.Providers.CLIPModel)
	breaker := resilience.NewBreaker(resilience.DefaultBreakerOpts)

	svc := search.New(textEmb, imageEmb, texts, images, breaker, search.Options{
		DefaultK: cfg.Search.DefaultK,
		Timeout:  time.Duration(cfg.Search.TimeoutSeconds) * time.Second,
	}, logger)

	met.CollectRuntime("carseek_ui", 15*time.Second)

	// --- Build HTTP server ---
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", handleIndex)
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("POST /api/search/text", handleTextSearch(svc, logger))
	mux.HandleFunc("POST /api/search/image", handleImageSearch(svc, logger))
	mux.Handle("GET /metrics", met.Handler())

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.CORS(sc.CORSOrigin),
		mid.OTel("carseek-search-ui"),
	)

	srv := &http.Server{
		Addr:         ":" + sc.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("search ui starting", "port", sc.Port,
			"text_collection", cfg.Collections.Text, "image_collection", cfg.Collections.Image)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// parseK reads an optional top-k value, 0 meaning "use the default".
func parseK(s string) int {
	if s == "" {
		return 0
	}
	k, err := strconv.Atoi(s)
	if err != nil || k < 0 {
		return 0
	}
	return k
}
