package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/keyword-crawler/internal/config"
	"github.com/JakeFAU/keyword-crawler/internal/crawler"
	filesink "github.com/JakeFAU/keyword-crawler/internal/sink/file"
	"github.com/JakeFAU/keyword-crawler/internal/sink/logsink"
	memorysink "github.com/JakeFAU/keyword-crawler/internal/sink/memory"
	pgsink "github.com/JakeFAU/keyword-crawler/internal/sink/postgres"
	sqlitesink "github.com/JakeFAU/keyword-crawler/internal/sink/sqlite"
)

// buildSink constructs the sink selected by cfg.Kind. The returned close
// function is always non-nil.
func buildSink(ctx context.Context, cfg config.SinkConfig, logger *zap.Logger) (crawler.Sink, func(), error) {
	noop := func() {}
	switch cfg.Kind {
	case config.SinkLog, "":
		return logsink.New(logger), noop, nil
	case config.SinkMemory:
		return memorysink.New(), noop, nil
	case config.SinkFile:
		s, err := filesink.Open(cfg.Path)
		if err != nil {
			return nil, noop, fmt.Errorf("open file sink: %w", err)
		}
		return s, closeLogged(s.Close, logger, "file"), nil
	case config.SinkSQLite:
		s, err := sqlitesink.Open(cfg.Path)
		if err != nil {
			return nil, noop, fmt.Errorf("open sqlite sink: %w", err)
		}
		return s, closeLogged(s.Close, logger, "sqlite"), nil
	case config.SinkPostgres:
		s, err := pgsink.New(ctx, pgsink.Config{
			DSN:         cfg.DSN,
			Table:       cfg.Table,
			CreateTable: cfg.CreateTable,
		})
		if err != nil {
			return nil, noop, fmt.Errorf("open postgres sink: %w", err)
		}
		return s, s.Close, nil
	default:
		return nil, noop, fmt.Errorf("sink.kind %q is not supported", cfg.Kind)
	}
}

func closeLogged(closeFn func() error, logger *zap.Logger, kind string) func() {
	return func() {
		if err := closeFn(); err != nil {
			logger.Warn("failed to close sink", zap.String("kind", kind), zap.Error(err))
		}
	}
}
