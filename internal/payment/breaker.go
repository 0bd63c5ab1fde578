package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// BreakerConfig tunes the circuit breaker around a Processor.
type BreakerConfig struct {
	Name string
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
	// HalfOpenRequests is how many probes run while half-open.
	HalfOpenRequests uint32
}

// DefaultBreakerConfig returns the production breaker tuning.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:                "payment-processor",
		ConsecutiveFailures: 5,
		OpenTimeout:         30 * time.Second,
		HalfOpenRequests:    1,
	}
}

// Breaker fails fast while the processor keeps failing. It never retries.
type Breaker struct {
	next Processor
	cb   *gobreaker.CircuitBreaker[*Session]
}

var _ Processor = (*Breaker)(nil)

func NewBreaker(next Processor, cfg BreakerConfig, log *zap.Logger) *Breaker {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("payment breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		// a caller giving up is not the processor's fault
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker[*Session](settings)}
}

func (b *Breaker) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	s, err := b.cb.Execute(func() (*Session, error) {
		return b.next.CreateSession(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrProcessor, err)
	}
	return s, err
}

// State exposes the breaker state for health reporting.
func (b *Breaker) State() string { return b.cb.State().String() }
