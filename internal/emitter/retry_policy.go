package emitter

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"net"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JakeFAU/keyword-crawler/internal/crawler"
)

// RetryPolicy decides whether a failed insert is attempted again.
type RetryPolicy interface {
	ShouldRetry(err error, attempt int) bool
	Backoff(attempt int) time.Duration
}

// NoRetry gives up after the first failure.
type NoRetry struct{}

// ShouldRetry always returns false.
func (NoRetry) ShouldRetry(error, int) bool { return false }

// Backoff always returns zero.
func (NoRetry) Backoff(int) time.Duration { return 0 }

// ExponentialRetryPolicy implements RetryPolicy with jittered backoff.
type ExponentialRetryPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

// NewExponentialRetryPolicy builds a policy. Non-positive arguments fall back
// to 3 attempts, 250ms base and 5s max.
func NewExponentialRetryPolicy(maxAttempts int, baseDelay, maxDelay time.Duration) *ExponentialRetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if baseDelay <= 0 {
		baseDelay = 250 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = 5 * time.Second
	}
	if maxDelay < baseDelay {
		maxDelay = baseDelay
	}
	return &ExponentialRetryPolicy{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		maxDelay:    maxDelay,
	}
}

// ShouldRetry reports whether a failed insert gets another attempt. attempt
// counts the attempts already made. Invalid records and Postgres or SQLite
// errors that fail identically on every attempt are not retried.
func (p *ExponentialRetryPolicy) ShouldRetry(err error, attempt int) bool {
	switch {
	case err == nil, attempt >= p.maxAttempts:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, crawler.ErrInvalidRecord):
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return !permanentPgClass(pgErr.Code)
	}
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		return transientSQLiteCode(coded.Code())
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return true
}

// permanentPgClass covers data exceptions (22), integrity constraint
// violations (23) and syntax or access rule violations (42).
func permanentPgClass(code string) bool {
	if len(code) < 2 {
		return false
	}
	switch code[:2] {
	case "22", "23", "42":
		return true
	}
	return false
}

// SQLite primary result codes; extended codes carry them in the low byte.
const (
	sqliteBusy   = 5
	sqliteLocked = 6
)

func transientSQLiteCode(code int) bool {
	switch code & 0xff {
	case sqliteBusy, sqliteLocked:
		return true
	}
	return false
}

// Backoff returns half the capped exponential delay plus up to the same
// amount of jitter.
func (p *ExponentialRetryPolicy) Backoff(attempt int) time.Duration {
	ceiling := p.maxDelay
	if attempt >= 0 && attempt < 32 {
		if d := p.baseDelay << uint(attempt); d > 0 && d < ceiling {
			ceiling = d
		}
	}
	half := ceiling / 2
	return half + jitter(half)
}

func jitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}
