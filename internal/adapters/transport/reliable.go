package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/NetCenter-Dev/Fetcher/internal/ports"
	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

type ReliableConfig struct {
	// Attempts per Send, including the first. Zero means 3.
	Attempts  uint
	BaseDelay time.Duration

	// RateLimit is frames per second; zero disables limiting.
	RateLimit float64
	Burst     int

	// BreakerFailures consecutive failed Sends open the breaker for
	// BreakerTimeout. Zero failures means 5.
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// Reliable wraps a transport with a rate limiter, a circuit breaker and
// retries, in that order.
type Reliable struct {
	next    ports.Transport
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	cfg     ReliableConfig
}

func NewReliable(next ports.Transport, cfg ReliableConfig) *Reliable {
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 100 * time.Millisecond
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
		if cfg.Burst <= 0 {
			cfg.Burst = 1
		}
	}

	failures := cfg.BreakerFailures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
	})

	return &Reliable{
		next:    next,
		cb:      cb,
		limiter: rate.NewLimiter(limit, cfg.Burst),
		cfg:     cfg,
	}
}

func (r *Reliable) Name() string { return r.next.Name() }

// State reports the breaker state ("closed", "half-open", "open").
func (r *Reliable) State() string { return r.cb.State().String() }

func (r *Reliable) Send(ctx context.Context, f ports.Frame) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	_, err := r.cb.Execute(func() (interface{}, error) {
		rt := retry.New(
			retry.Context(ctx),
			retry.Attempts(r.cfg.Attempts),
			retry.Delay(r.cfg.BaseDelay),
			retry.DelayType(retry.BackOffDelay),
		)
		return nil, rt.Do(func() error {
			return r.next.Send(ctx, f)
		})
	})
	if err != nil {
		return fmt.Errorf("%s: %w", r.next.Name(), err)
	}
	return nil
}

var _ ports.Transport = (*Reliable)(nil)
