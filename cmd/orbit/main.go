// Package main implements the orbit CLI, which produces one evaluated
// behavioral intervention from a request file.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/codeGROOVE-dev/orbit/pkg/behavior"
	"github.com/codeGROOVE-dev/orbit/pkg/config"
	"github.com/codeGROOVE-dev/orbit/pkg/engine"
	"github.com/codeGROOVE-dev/orbit/pkg/evaluation"
	"github.com/codeGROOVE-dev/orbit/pkg/history"
	"github.com/codeGROOVE-dev/orbit/pkg/llm"
	"github.com/codeGROOVE-dev/orbit/pkg/pattern"
	"github.com/codeGROOVE-dev/orbit/pkg/profilecache"
	"github.com/codeGROOVE-dev/orbit/pkg/render"
	"github.com/codeGROOVE-dev/orbit/pkg/technique"
)

var (
	configPath   = flag.String("config", "", "YAML config file (or set ORBIT_CONFIG)")
	dbPath       = flag.String("db", "", "SQLite history database (or set ORBIT_DB_PATH)")
	cacheDir     = flag.String("cache-dir", "", "Reply cache directory (or set CACHE_DIR)")
	noCache      = flag.Bool("no-cache", false, "Disable reply caching")
	offline      = flag.Bool("offline", false, "Score locally without calling a generation service (never approves)")
	offlineScore = flag.Float64("offline-score", llm.DefaultOfflineScore, "Score returned for every dimension in offline mode")
	record       = flag.Bool("record", false, "Append delivery and rejection events to the history database")
	jsonOutput   = flag.Bool("json", false, "Emit the output record as JSON")
	timeout      = flag.Duration("timeout", 2*time.Minute, "Overall deadline for the run")
	verbose      = flag.Bool("verbose", false, "Enable verbose logging")
	version      = flag.Bool("version", false, "Show version")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Println("orbit v0.1.0")
		return
	}

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <request.json|->\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	level := slog.LevelError
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	if err := run(ctx, logger, args[0]); err != nil {
		cancel()
		logger.Error("Run failed", "error", err)
		fmt.Fprintf(os.Stderr, "orbit: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, requestPath string) error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *cacheDir != "" {
		cfg.CacheDir = *cacheDir
	}
	if *noCache {
		cfg.LLM.DisableCache = true
	}

	req, err := readRequest(requestPath)
	if err != nil {
		return err
	}

	gen, closeGen, err := newGenerator(ctx, cfg, *offline, *offlineScore, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeGen(); err != nil {
			logger.Error("Failed to close generation client", "error", err)
		}
	}()

	rules, err := cfg.Rules()
	if err != nil {
		return err
	}
	reg := prometheus.NewRegistry()
	gate := evaluation.New(gen,
		evaluation.WithLogger(logger),
		evaluation.WithMetrics(evaluation.MustNewMetrics(reg)),
		evaluation.WithClaimChecker(evaluation.CitationClaimChecker{}),
		evaluation.WithRules(rules),
		evaluation.WithThresholds(cfg.Evaluation.Thresholds),
		evaluation.WithWeights(cfg.Evaluation.Weights),
		evaluation.WithBlend(cfg.Evaluation.Blend),
		evaluation.WithTimeout(cfg.Evaluation.Timeout),
	)

	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithAnalyzer(pattern.New(
			pattern.WithLogger(logger),
			pattern.WithRecentWindow(cfg.Analyzer.RecentWindow),
			pattern.WithMinSamples(cfg.Analyzer.MinSamples),
		)),
		engine.WithSelector(technique.NewSelector(
			technique.WithLogger(logger),
			technique.WithCrisisPool(cfg.CrisisTechniques()...),
		)),
		engine.WithProfileCache(profilecache.New(
			profilecache.WithTTL(cfg.Engine.ProfileTTL),
			profilecache.WithLogger(logger),
			profilecache.WithRegisterer(reg),
		)),
		engine.WithHistoryWindow(cfg.Engine.HistoryWindow),
		engine.WithMaxAttempts(cfg.Engine.MaxAttempts),
	}
	if cfg.DBPath != "" {
		store, err := history.OpenSQLite(cfg.DBPath)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Error("Failed to close history store", "error", err)
			}
		}()
		opts = append(opts, engine.WithHistory(store))
	} else if *record {
		return errors.New("--record needs a history database (--db or ORBIT_DB_PATH)")
	}

	eng := engine.New(gate, opts...)
	out, err := eng.Run(ctx, req)
	if err != nil {
		return err
	}

	if *record {
		if err := eng.RecordOutcome(ctx, req.UserID, out.FeedbackEvents()...); err != nil {
			return err
		}
	}

	if *verbose {
		if families, err := reg.Gather(); err == nil {
			for _, mf := range families {
				logger.Debug("metric", "name", mf.GetName(), "series", len(mf.GetMetric()))
			}
		}
	}

	if *jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			*engine.Output
			Profile *behavior.Profile `json:"profile"`
		}{out, out.Profile})
	}

	fmt.Println(render.Profile(out.Profile))
	fmt.Println(render.Histogram(out.Profile, out.Candidate.Metadata.Timing.OptimalHours))
	fmt.Println(render.Candidate(out.Candidate))
	if out.Evaluation != nil {
		fmt.Println(render.Evaluation(out.Evaluation))
	}
	if len(out.Attempts) > 1 {
		fmt.Printf("%d candidates evaluated\n", len(out.Attempts))
	}
	return nil
}

// errNoCredentials is returned instead of silently scoring offline.
var errNoCredentials = errors.New("no generation credentials configured: set GEMINI_API_KEY, GCP_PROJECT, " +
	"ANTHROPIC_API_KEY or OPENROUTER_API_KEY, or pass --offline")

// newGenerator returns the configured generation client, or the offline
// scorer when asked for explicitly.
func newGenerator(ctx context.Context, cfg *config.Config, offline bool, score float64, logger *slog.Logger) (llm.Generator, func() error, error) {
	noop := func() error { return nil }
	if offline {
		logger.Warn("scoring offline, every dimension is degraded and nothing is approved")
		return llm.Offline{Score: score}, noop, nil
	}
	if !cfg.HasCredentials() {
		return nil, noop, errNoCredentials
	}
	client, err := llm.New(ctx, cfg.LLMConfig(), logger)
	if err != nil {
		return nil, noop, fmt.Errorf("creating generation client: %w", err)
	}
	return client, client.Close, nil
}

func readRequest(path string) (engine.Request, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return engine.Request{}, fmt.Errorf("reading request: %w", err)
	}
	var req engine.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return engine.Request{}, fmt.Errorf("parsing request: %w", err)
	}
	return req, nil
}
