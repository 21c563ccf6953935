package retry

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitegen/internal/foundation/errors"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	require.Equal(t, ModeExponential, p.Mode)
	require.NoError(t, p.Validate())
}

func TestNewPolicyOverrides(t *testing.T) {
	p := NewPolicy(ModeFixed, 5*time.Second, 2*time.Second, 5)
	require.Equal(t, 2*time.Second, p.Initial, "initial is clamped to max")
	require.Equal(t, 2*time.Second, p.Max)
	require.Equal(t, ModeFixed, p.Mode)
	require.Equal(t, 5, p.MaxRetries)

	p = NewPolicy("bogus", 0, 0, -1)
	require.Equal(t, DefaultPolicy(), p)
}

func TestDelayModes(t *testing.T) {
	cases := []struct {
		mode    Mode
		attempt int
		want    time.Duration
	}{
		{ModeFixed, 1, 100 * time.Millisecond},
		{ModeFixed, 3, 100 * time.Millisecond},
		{ModeLinear, 1, 100 * time.Millisecond},
		{ModeLinear, 2, 200 * time.Millisecond},
		{ModeLinear, 4, 250 * time.Millisecond},
		{ModeExponential, 1, 100 * time.Millisecond},
		{ModeExponential, 2, 200 * time.Millisecond},
		{ModeExponential, 3, 250 * time.Millisecond},
		{ModeExponential, 0, 0},
	}
	for _, c := range cases {
		p := NewPolicy(c.mode, 100*time.Millisecond, 250*time.Millisecond, 3)
		require.Equal(t, c.want, p.Delay(c.attempt), "%s attempt %d", c.mode, c.attempt)
	}
}

func TestValidate(t *testing.T) {
	require.Error(t, Policy{Initial: 0, Max: time.Second}.Validate())
	require.Error(t, Policy{Initial: time.Second, Max: 0}.Validate())
	require.Error(t, Policy{Initial: time.Second, Max: time.Second, MaxRetries: -1}.Validate())
}

func TestDo(t *testing.T) {
	p := NewPolicy(ModeFixed, time.Millisecond, time.Millisecond, 2)

	t.Run("retries retryable errors until success", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), p, func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.NetworkError("flaky").Build()
			}
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, 3, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), p, func(context.Context) error {
			calls++
			return errors.NetworkError("down").Build()
		})
		require.Error(t, err)
		require.Equal(t, 3, calls)
	})

	t.Run("does not retry permanent errors", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), p, func(context.Context) error {
			calls++
			return errors.ConfigError("bad").Build()
		})
		require.Error(t, err)
		require.Equal(t, 1, calls)

		calls = 0
		_ = Do(context.Background(), p, func(context.Context) error {
			calls++
			return stderrors.New("plain")
		})
		require.Equal(t, 1, calls)
	})

	t.Run("stops when the context is done", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		calls := 0
		err := Do(ctx, NewPolicy(ModeFixed, time.Hour, time.Hour, 5), func(context.Context) error {
			calls++
			return errors.NetworkError("down").Build()
		})
		require.Error(t, err)
		require.Equal(t, 1, calls)
	})
}
