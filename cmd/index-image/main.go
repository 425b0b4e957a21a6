// Command index-image loads a car catalog CSV, fetches each row's image
// locators (local paths or HTTP URLs), embeds them with the CLIP service, and
// upserts the vectors into the image collection. One CSV row may produce
// several points, one per image.
//
// Exit status is 0 only if at least one row was indexed.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/CarSeekAI/carseek-mvp/engine/catalog"
	"github.com/CarSeekAI/carseek-mvp/engine/index"
	"github.com/CarSeekAI/carseek-mvp/engine/semantic"
	"github.com/CarSeekAI/carseek-mvp/pkg/config"
	"github.com/CarSeekAI/carseek-mvp/pkg/embed"
	"github.com/CarSeekAI/carseek-mvp/pkg/metrics"
)

var met = metrics.New()

var (
	mRowsIndexed = met.Counter("carseek_index_image_rows_indexed_total", "Rows indexed into the image collection")
	mRowsSkipped = met.Counter("carseek_index_image_rows_skipped_total", "Rows skipped during image indexing")
	mRunDur      = met.Histogram("carseek_index_image_run_duration_seconds", "Full indexing run time", nil)
)

func main() {
	var (
		csvPath     = flag.String("csv", "", "path to the car catalog CSV (required)")
		cloud       = flag.Bool("cloud", false, "connect to Qdrant Cloud instead of a local instance")
		dbURI       = flag.String("db_uri", "localhost:6334", "Qdrant gRPC address (cluster URI with --cloud)")
		apiKey      = flag.String("api_key", "", "Qdrant Cloud API key (cloud only)")
		region      = flag.String("region", "us-east-1", "Qdrant Cloud region")
		mode        = flag.String("mode", "append", "existing collection handling: append | replace")
		batch       = flag.Int("batch", 32, "upsert batch size")
		collection  = flag.String("collection", "", "override the image collection name")
		configPath  = flag.String("config", "", "optional YAML config file")
		clipURL     = flag.String("clip", "", "CLIP service base URL (overrides config)")
		clipModel   = flag.String("model", "", "CLIP model name (overrides config)")
		metricsPort = flag.Int("metrics_port", 0, "serve /metrics on this port (0 = off)")
		quiet       = flag.Bool("quiet", false, "disable the progress bar")
	)
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(log)

	if *csvPath == "" {
		log.Error("--csv is required")
		os.Exit(2)
	}
	runMode, err := index.ParseMode(*mode)
	if err != nil {
		log.Error("bad --mode", "error", err)
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("config load failed", "error", err)
		os.Exit(1)
	}
	if *clipURL != "" {
		cfg.Providers.CLIPURL = *clipURL
	}
	if *clipModel != "" {
		cfg.Providers.CLIPModel = *clipModel
	}
	if *collection == "" {
		*collection = cfg.Collections.Image
	}

	if *metricsPort > 0 {
		met.CollectRuntime("carseek_index_image", 15*time.Second)
		met.ServeAsync(*metricsPort)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	records, err := catalog.Load(*csvPath, catalog.ImageSchema)
	if err != nil {
		log.Error("catalog load failed", "csv", *csvPath, "error", err)
		os.Exit(1)
	}
	log.Info("catalog loaded", "csv", *csvPath, "rows", len(records))

	store, err := semantic.New(semantic.ConnectConfig{
		Addr:   *dbURI,
		Cloud:  *cloud,
		APIKey: *apiKey,
		Region: *region,
	}, *collection)
	if err != nil {
		log.Error("qdrant connect failed", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	log.Info("connected to Qdrant", "collection", *collection, "cloud", *cloud)

	embedder := embed.NewCLIPClient(cfg.Providers.CLIPURL, cfg.Providers.CLIPModel)
	fetcher := index.NewFetcher(cfg.Fetch.RequestsPerSecond, cfg.Fetch.Burst, cfg.Fetch.MaxImageBytes)
	log.Info("using CLIP embeddings", "model", cfg.Providers.CLIPModel)

	opts := index.DefaultOptions()
	opts.BatchSize = *batch
	opts.Mode = runMode
	if !*quiet {
		bar := indexBar(len(records))
		opts.OnRow = func(done, total int) { bar.Set(done) }
	}

	ix := index.NewImageIndexer(embedder, fetcher, store, opts, log)

	start := time.Now()
	stats, err := ix.Run(ctx, records)
	mRunDur.Since(start)
	mRowsIndexed.Add(int64(stats.Indexed))
	mRowsSkipped.Add(int64(stats.Skipped))

	if !*quiet {
		fmt.Fprintln(os.Stderr)
	}
	fmt.Printf("rows_indexed=%d rows_skipped=%d rows_total=%d\n", stats.Indexed, stats.Skipped, stats.Total)

	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("indexing interrupted", "indexed", stats.Indexed)
		} else {
			log.Error("indexing failed", "error", err)
		}
		os.Exit(1)
	}
	log.Info("indexing done", "indexed", stats.Indexed, "skipped", stats.Skipped, "took", time.Since(start).String())
}

func indexBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("indexing"),
	)
}
