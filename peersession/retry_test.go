package peersession

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunSucceedsFirstTry(t *testing.T) {
	e := Envelope{MaxAttempts: 3, ShortDelay: time.Millisecond, PerAttemptTimeout: time.Second}
	calls := 0
	err := Run(context.Background(), "test-op", e, func(ctx context.Context) error {
		calls++
		return nil
	}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestRunExhaustsAttempts(t *testing.T) {
	e := Envelope{MaxAttempts: 3, ShortDelay: time.Millisecond, PerAttemptTimeout: time.Second}
	calls := 0
	err := Run(context.Background(), "test-op", e, func(ctx context.Context) error {
		calls++
		return errBoom
	}, nil)
	require.Error(t, err)
	require.Equal(t, 3, calls)
	var exhausted *ErrEnvelopeExhausted
	require.ErrorAs(t, err, &exhausted)
}

func TestRunPerAttemptTimeoutWins(t *testing.T) {
	e := Envelope{MaxAttempts: 1, ShortDelay: time.Millisecond, PerAttemptTimeout: 10 * time.Millisecond}
	err := Run(context.Background(), "test-op", e, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, nil)
	require.Error(t, err)
}

func TestDelayForAttemptTransition(t *testing.T) {
	e := ReconnectEnvelope
	require.Equal(t, e.ShortDelay, e.delayForAttempt(0))
	require.Equal(t, e.ShortDelay, e.delayForAttempt(59))
	require.Equal(t, e.LongDelay, e.delayForAttempt(60))
}

type boomErr struct{}

func (boomErr) Error() string { return "boom" }

var errBoom = boomErr{}
