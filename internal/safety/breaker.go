package safety

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/outboundlab/cadence/internal/config"
)

// ErrBreakerOpen is returned when the action breaker is open and refuses
// new actions until the cooldown elapses.
var ErrBreakerOpen = errors.New("safety: action breaker is open")

// ActionBreaker halts automation after consecutive real-world action
// failures. Repeated failures usually mean the platform is pushing back
// (challenges, blocks, layout changes), and continuing raises ban risk.
//
// States follow the standard circuit breaker pattern: closed during normal
// operation, open after BreakerMaxFailures consecutive failures, half-open
// after the cooldown to probe with a single action.
type ActionBreaker struct {
	breaker *gobreaker.CircuitBreaker
}

// NewActionBreaker creates a breaker from the safety configuration.
// Non-positive settings fall back to 3 failures and a 30 minute cooldown.
func NewActionBreaker(cfg config.SafetyConfig) *ActionBreaker {
	maxFailures := cfg.BreakerMaxFailures
	if maxFailures <= 0 {
		maxFailures = 3
	}
	cooldown := time.Duration(cfg.BreakerCooldownMinutes) * time.Minute
	if cooldown <= 0 {
		cooldown = 30 * time.Minute
	}

	settings := gobreaker.Settings{
		Name:        "ActionBreaker",
		MaxRequests: 1, // one probe action in half-open state
		Interval:    0, // never clear counts while closed
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(maxFailures)
		},
	}

	return &ActionBreaker{breaker: gobreaker.NewCircuitBreaker(settings)}
}

// Execute runs the real-world action through the breaker. It returns
// ErrBreakerOpen without invoking the action when the breaker is open.
func (b *ActionBreaker) Execute(action func() error) error {
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, action()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrBreakerOpen
	}
	return err
}

// State returns the current breaker state as a string (closed, half-open,
// open) for status reporting.
func (b *ActionBreaker) State() string {
	return b.breaker.State().String()
}
