// Package retry computes backoff delays and retries operations that fail
// with retryable classified errors.
package retry

import (
	"context"
	"time"

	"git.home.luguber.info/inful/sitegen/internal/foundation/errors"
)

// Mode selects how the delay grows between attempts.
type Mode string

const (
	ModeFixed       Mode = "fixed"
	ModeLinear      Mode = "linear"
	ModeExponential Mode = "exponential"
)

type Policy struct {
	Mode       Mode          // fixed|linear|exponential
	Initial    time.Duration // base delay
	Max        time.Duration // cap for growth
	MaxRetries int           // maximum retry attempts after the first failure
}

func DefaultPolicy() Policy {
	return Policy{Mode: ModeExponential, Initial: 200 * time.Millisecond, Max: 2 * time.Second, MaxRetries: 3}
}

// NewPolicy overrides the defaults with every non-zero argument. An unknown
// mode keeps the default and Initial is clamped to Max.
func NewPolicy(mode Mode, initial, maxDuration time.Duration, maxRetries int) Policy {
	p := DefaultPolicy()
	if maxRetries >= 0 {
		p.MaxRetries = maxRetries
	}
	if initial > 0 {
		p.Initial = initial
	}
	if maxDuration > 0 {
		p.Max = maxDuration
	}
	switch mode {
	case ModeFixed, ModeLinear, ModeExponential:
		p.Mode = mode
	}
	if p.Initial > p.Max {
		p.Initial = p.Max
	}
	return p
}

// Delay returns the wait before retry number retryCount (1-based).
func (p Policy) Delay(retryCount int) time.Duration {
	if retryCount <= 0 {
		return 0
	}
	switch p.Mode {
	case ModeFixed:
		return p.Initial
	case ModeExponential:
		d := p.Initial * (1 << (retryCount - 1))
		if d > p.Max || d <= 0 {
			return p.Max
		}
		return d
	default:
		d := time.Duration(retryCount) * p.Initial
		if d > p.Max {
			return p.Max
		}
		return d
	}
}

func (p Policy) Validate() error {
	if p.Initial <= 0 {
		return errors.ValidationError("initial delay must be > 0").Build()
	}
	if p.Max <= 0 {
		return errors.ValidationError("max delay must be > 0").Build()
	}
	if p.MaxRetries < 0 {
		return errors.ValidationError("max retries cannot be negative").Build()
	}
	return nil
}

// Do runs fn until it succeeds, fails with an error that is not retryable,
// the retries are exhausted or ctx is done. Only classified errors whose
// retry strategy allows it are retried.
func Do(ctx context.Context, p Policy, fn func(context.Context) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		ce, ok := errors.AsClassified(err)
		if !ok || !ce.CanRetry() || attempt >= p.MaxRetries {
			return err
		}
		t := time.NewTimer(p.Delay(attempt + 1))
		select {
		case <-ctx.Done():
			t.Stop()
			return err
		case <-t.C:
		}
	}
}
