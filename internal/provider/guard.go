package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"eventret/internal/domain"
	"eventret/internal/util"
)

// Compile-time interface check.
var _ BarSource = (*Guard)(nil)

// GuardOptions tunes the protections Guard puts in front of an upstream.
type GuardOptions struct {
	RateLimitPerMin int           // 0 disables throttling
	MaxAttempts     int           // attempts per fetch, including the first
	BaseDelay       time.Duration // first retry delay, doubled each attempt
	BreakerFailures uint32        // consecutive transport failures that open the breaker
	BreakerCooldown time.Duration // how long the breaker stays open
}

// Guard throttles, retries and circuit-breaks calls to a SeriesProvider.
// Only transport failures are retried or counted by the breaker; malformed
// payloads are returned immediately.
type Guard struct {
	name      string
	next      SeriesProvider
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
	attempts  int
	baseDelay time.Duration
	log       *slog.Logger
}

// NewGuard wraps next. name identifies the breaker in logs. When next is a
// BarSource the Guard is one too and can sit under a CachedProvider.
func NewGuard(name string, next SeriesProvider, opts GuardOptions) *Guard {
	limit := rate.Inf
	if opts.RateLimitPerMin > 0 {
		limit = rate.Every(time.Minute / time.Duration(opts.RateLimitPerMin))
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 5
	}
	if opts.BreakerCooldown <= 0 {
		opts.BreakerCooldown = 30 * time.Second
	}

	log := slog.Default().With("guard", name)
	st := gobreaker.Settings{
		Name:    name,
		Timeout: opts.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.BreakerFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, domain.ErrTransport)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("breaker state change", "from", from.String(), "to", to.String())
		},
	}

	return &Guard{
		name:      name,
		next:      next,
		limiter:   rate.NewLimiter(limit, 1),
		breaker:   gobreaker.NewCircuitBreaker(st),
		attempts:  opts.MaxAttempts,
		baseDelay: opts.BaseDelay,
		log:       log,
	}
}

// Name returns the name the guard was created with.
func (g *Guard) Name() string { return g.name }

// FetchDailySeries forwards to the wrapped provider.
func (g *Guard) FetchDailySeries(ctx context.Context, symbol string, from, to time.Time) (domain.PriceSeries, error) {
	v, err := g.do(ctx, symbol, func() (interface{}, error) {
		return g.next.FetchDailySeries(ctx, symbol, from, to)
	})
	if err != nil {
		return domain.PriceSeries{}, err
	}
	return v.(domain.PriceSeries), nil
}

// FetchBars forwards to the wrapped BarSource.
func (g *Guard) FetchBars(ctx context.Context, symbol string, from, to time.Time) ([]domain.Bar, error) {
	src, ok := g.next.(BarSource)
	if !ok {
		return nil, fmt.Errorf("guard %s: upstream does not serve raw bars", g.name)
	}
	v, err := g.do(ctx, symbol, func() (interface{}, error) {
		return src.FetchBars(ctx, symbol, from, to)
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Bar), nil
}

// do runs fn behind the limiter and breaker, retrying transport failures.
func (g *Guard) do(ctx context.Context, symbol string, fn func() (interface{}, error)) (interface{}, error) {
	var out interface{}
	retryable := func(err error) bool { return errors.Is(err, domain.ErrTransport) }

	err := util.RetryIf(ctx, g.attempts, g.baseDelay, retryable, func() error {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
		v, err := g.breaker.Execute(fn)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%s: %v: %w", symbol, err, domain.ErrTransport)
		}
		if err != nil {
			g.log.Debug("fetch failed", "symbol", symbol, "error", err)
			return err
		}
		out = v
		return nil
	})
	return out, err
}
