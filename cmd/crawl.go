package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/keyword-crawler/internal/api"
	"github.com/JakeFAU/keyword-crawler/internal/classifier"
	"github.com/JakeFAU/keyword-crawler/internal/config"
	"github.com/JakeFAU/keyword-crawler/internal/crawler"
	"github.com/JakeFAU/keyword-crawler/internal/dedup"
	"github.com/JakeFAU/keyword-crawler/internal/emitter"
	"github.com/JakeFAU/keyword-crawler/internal/engine"
	"github.com/JakeFAU/keyword-crawler/internal/extract"
	collyfetcher "github.com/JakeFAU/keyword-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/keyword-crawler/internal/logging"
	"github.com/JakeFAU/keyword-crawler/internal/metrics"
)

type crawlFlags struct {
	seeds      []string
	maxLevels  int
	maxVisited int
	sinkKind   string
}

// apply overrides cfg with the flags the user set explicitly.
func (f crawlFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("seed") {
		cfg.Crawl.Seeds = f.seeds
	}
	if cmd.Flags().Changed("max-levels") {
		cfg.Crawl.MaxLevels = f.maxLevels
	}
	if cmd.Flags().Changed("max-visited") {
		cfg.Crawl.MaxVisited = f.maxVisited
	}
	if cmd.Flags().Changed("sink") {
		cfg.Sink.Kind = f.sinkKind
	}
}

func newCrawlCmd() *cobra.Command {
	var flags crawlFlags
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Runs a single crawl",
		Long: `Runs one breadth-first crawl from the configured seeds and emits a
keyword record per successfully processed page. The crawl stops after
crawl.max_levels levels, once crawl.max_visited pages were visited, when the
frontier runs dry, or on SIGINT/SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawl(cmd, flags)
		},
	}
	cmd.Flags().StringSliceVar(&flags.seeds, "seed", nil, "seed URL (repeatable); replaces crawl.seeds")
	cmd.Flags().IntVar(&flags.maxLevels, "max-levels", 0, "override crawl.max_levels")
	cmd.Flags().IntVar(&flags.maxVisited, "max-visited", 0, "override crawl.max_visited")
	cmd.Flags().StringVar(&flags.sinkKind, "sink", "", "override sink.kind")
	return cmd
}

func runCrawl(cmd *cobra.Command, flags crawlFlags) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	flags.apply(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()
	metrics.Init()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink, closeSink, err := buildSink(ctx, cfg.Sink, logger)
	if err != nil {
		return err
	}
	defer closeSink()

	eng, err := buildEngine(cfg, sink, logger)
	if err != nil {
		return err
	}

	serverDone := startServer(ctx, cfg.Server, eng, logger)

	summary, runErr := eng.Run(ctx)
	logger.Info("crawl finished",
		zap.String("run_id", summary.RunID),
		zap.String("reason", string(summary.Reason)),
		zap.Int("levels", summary.Levels),
		zap.Int("visited", summary.Visited),
		zap.Int("failed", summary.Failed),
		zap.Int("emitted", summary.Emitted),
		zap.Int("sink_failures", summary.SinkFailures),
		zap.Int("discovered", summary.Discovered),
		zap.Duration("duration", summary.Duration),
	)

	stop()
	if serverDone != nil {
		if err := <-serverDone; err != nil {
			logger.Warn("status server stopped with error", zap.Error(err))
		}
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("run crawl: %w", runErr)
	}
	return nil
}

func buildEngine(cfg config.Config, sink crawler.Sink, logger *zap.Logger) (*engine.Engine, error) {
	em, err := emitter.New(sink, emitter.Options{
		Retry:         retryPolicy(cfg.Sink.Retry),
		InsertTimeout: cfg.Sink.InsertTimeout,
		Logger:        logger.Named("emitter"),
	})
	if err != nil {
		return nil, fmt.Errorf("init emitter: %w", err)
	}

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:    cfg.Crawl.UserAgent,
		Timeout:      cfg.Crawl.RequestTimeout,
		MaxBodyBytes: cfg.Crawl.MaxBodyBytes,
	})

	eng, err := engine.New(engine.Config{
		Seeds:             cfg.Crawl.Seeds,
		MaxLevels:         cfg.Crawl.MaxLevels,
		MaxVisited:        cfg.Crawl.MaxVisited,
		Concurrency:       cfg.Crawl.Concurrency,
		FetchTimeout:      cfg.Crawl.RequestTimeout,
		TopN:              cfg.Scoring.TopN,
		ScoreCap:          cfg.Scoring.ScoreCap,
		EmphasizeHeadings: cfg.Scoring.EmphasizeHeadings,
	}, engine.Dependencies{
		Fetcher:    fetcher,
		Extractor:  extract.New(),
		Classifier: classifier.NewProseTagger(classifier.WithMaxChars(cfg.Crawl.MaxTextChars)),
		Emitter:    em,
		Tracker:    dedup.New(dedup.WithBloom(cfg.Dedup.BloomCapacity, cfg.Dedup.BloomFPRate)),
		Logger:     logger.Named("engine"),
	})
	if err != nil {
		return nil, fmt.Errorf("init engine: %w", err)
	}
	return eng, nil
}

func retryPolicy(cfg config.RetryConfig) emitter.RetryPolicy {
	if cfg.MaxAttempts <= 0 {
		return emitter.NoRetry{}
	}
	return emitter.NewExponentialRetryPolicy(cfg.MaxAttempts, cfg.BaseDelay, cfg.MaxDelay)
}

// startServer runs the status server until ctx is done. It returns nil when
// the server is disabled.
func startServer(ctx context.Context, cfg config.ServerConfig, eng *engine.Engine, logger *zap.Logger) <-chan error {
	if !cfg.Enabled {
		return nil
	}
	done := make(chan error, 1)
	srv := api.NewServer(eng, logger)
	go func() {
		done <- srv.ListenAndServe(ctx, cfg.Port)
	}()
	return done
}
