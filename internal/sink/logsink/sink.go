// Package logsink writes crawl records to a zap logger instead of storage.
package logsink

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/keyword-crawler/internal/crawler"
)

// Sink logs each record at info level.
type Sink struct {
	logger *zap.Logger
}

// New returns a sink logging to logger.
func New(logger *zap.Logger) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{logger: logger.Named("sink")}
}

// Insert logs record and never fails.
func (s *Sink) Insert(_ context.Context, record crawler.Record) error {
	words := make([]string, 0, len(record.Keywords))
	for _, kw := range record.Keywords {
		words = append(words, kw.Word)
	}
	s.logger.Info("page record",
		zap.String("run_id", record.RunID),
		zap.String("url", record.URL),
		zap.String("title", record.Title),
		zap.Int("level", record.Level),
		zap.Int("sequence", record.Sequence),
		zap.Strings("keywords", words),
		zap.Int("links", len(record.Links)),
	)
	return nil
}
