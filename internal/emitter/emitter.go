// Package emitter hands scored documents to a sink.
//
// Emission is fire-and-forget with respect to crawl state: a failed insert is
// reported to the caller but never rolls back scoring or dedup.
package emitter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/keyword-crawler/internal/crawler"
	"github.com/JakeFAU/keyword-crawler/internal/metrics"
)

// Options configures an Emitter.
type Options struct {
	Retry RetryPolicy
	// InsertTimeout bounds each insert attempt. Zero means no extra bound.
	InsertTimeout time.Duration
	Logger        *zap.Logger
	// Sleep waits between attempts; tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Emitter converts documents into records and inserts them.
type Emitter struct {
	sink    crawler.Sink
	retry   RetryPolicy
	timeout time.Duration
	logger  *zap.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// New builds an Emitter around sink.
func New(sink crawler.Sink, opts Options) (*Emitter, error) {
	if sink == nil {
		return nil, errors.New("sink is required")
	}
	if opts.Retry == nil {
		opts.Retry = NoRetry{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepWithContext
	}
	return &Emitter{
		sink:    sink,
		retry:   opts.Retry,
		timeout: opts.InsertTimeout,
		logger:  opts.Logger,
		sleep:   opts.Sleep,
	}, nil
}

// ToRecord flattens doc into the sink row shape.
func ToRecord(doc crawler.ScoredDocument) crawler.Record {
	keywords := doc.Keywords
	if keywords == nil {
		keywords = []crawler.Keyword{}
	}
	links := doc.Links
	if links == nil {
		links = []crawler.Link{}
	}
	return crawler.Record{
		RunID:     doc.RunID,
		URL:       doc.URL,
		Title:     doc.Title,
		Level:     doc.Level,
		Sequence:  doc.Sequence,
		Keywords:  keywords,
		Links:     links,
		FetchedAt: doc.FetchedAt,
	}
}

// Emit inserts doc, retrying per the configured policy. The returned error
// wraps crawler.ErrSink.
func (e *Emitter) Emit(ctx context.Context, doc crawler.ScoredDocument) error {
	record := ToRecord(doc)
	var err error
	for attempt := 1; ; attempt++ {
		err = e.insert(ctx, record)
		if err == nil {
			metrics.ObserveSinkInsert(metrics.SinkResultOK)
			return nil
		}
		if !e.retry.ShouldRetry(err, attempt) {
			break
		}
		wait := e.retry.Backoff(attempt)
		e.logger.Warn("sink insert failed, retrying",
			zap.String("url", record.URL),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		if sleepErr := e.sleep(ctx, wait); sleepErr != nil {
			err = sleepErr
			break
		}
	}
	metrics.ObserveSinkInsert(metrics.SinkResultError)
	return &crawler.URLError{
		URL:   record.URL,
		Stage: crawler.StateScored,
		Err:   fmt.Errorf("%w: %w", crawler.ErrSink, err),
	}
}

func (e *Emitter) insert(ctx context.Context, record crawler.Record) error {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	return e.sink.Insert(ctx, record)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("retry wait: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
