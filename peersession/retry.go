package peersession

import (
	"context"
	"time"

	"github.com/lightningnetwork/lnd/queue"
	"github.com/utxoteleport/coinswap-taker/swaperr"
)

// Envelope is the (max_attempts, short_delay, long_delay, transition,
// per_attempt_timeout) retry combinator used around every Maker
// interaction. Defined once and reused for first-connect, sender-sig,
// receiver-sig, hop-driver, and settle exchanges.
type Envelope struct {
	MaxAttempts       int
	ShortDelay        time.Duration
	LongDelay         time.Duration
	Transition        int
	PerAttemptTimeout time.Duration
}

// FirstConnectEnvelope governs the initial sender-sig request against
// Maker 0, before any funding exists.
var FirstConnectEnvelope = Envelope{
	MaxAttempts:       5,
	ShortDelay:        1 * time.Second,
	PerAttemptTimeout: 20 * time.Second,
}

// ReconnectEnvelope governs every post-funding interaction.
var ReconnectEnvelope = Envelope{
	MaxAttempts:       3200,
	ShortDelay:        10 * time.Second,
	LongDelay:         60 * time.Second,
	Transition:        60,
	PerAttemptTimeout: 300 * time.Second,
}

// ErrEnvelopeExhausted is returned once every attempt allowed by the
// envelope has failed, wrapped as swaperr.Protocol since exhausting an
// envelope aborts the round rather than leaving a recoverable socket
// state behind.
type ErrEnvelopeExhausted struct {
	Op string
}

func (e *ErrEnvelopeExhausted) Error() string {
	return "timed out of " + e.Op
}

// delayForAttempt returns the sleep to apply after the failed attempt
// with zero-based index n: ShortDelay after each of the first
// Transition attempts (n < Transition), LongDelay after every later one.
func (e Envelope) delayForAttempt(n int) time.Duration {
	if e.Transition > 0 && n >= e.Transition {
		return e.LongDelay
	}
	return e.ShortDelay
}

// Run executes op under the envelope's attempt/timeout/delay policy.
// Each attempt races op against PerAttemptTimeout: whichever resolves
// first wins, and a timed-out attempt is abandoned (its goroutine may
// still be unwinding in the background closing its socket). An attempt
// failing with a swaperr.Protocol error is not retried: Run returns that
// error at once. failures is
// an optional sink recording the error from each failed attempt, using
// a bounded concurrent queue so a caller can inspect recent attempt
// history without blocking the retry loop on a slow reader.
func Run(ctx context.Context, op string, e Envelope, attempt func(ctx context.Context) error, failures *queue.ConcurrentQueue) error {
	for n := 0; n < e.MaxAttempts; n++ {
		attemptCtx, cancel := context.WithTimeout(ctx, e.PerAttemptTimeout)
		errCh := make(chan error, 1)

		go func() {
			errCh <- attempt(attemptCtx)
		}()

		var err error
		select {
		case err = <-errCh:
		case <-attemptCtx.Done():
			err = attemptCtx.Err()
		}
		cancel()

		if err == nil {
			return nil
		}

		if failures != nil {
			failures.ChanIn() <- interface{}(err)
		}

		if swaperr.Is(err, swaperr.Protocol) {
			return err
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if n < e.MaxAttempts-1 {
			select {
			case <-time.After(e.delayForAttempt(n)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return swaperr.Wrap(swaperr.Protocol, &ErrEnvelopeExhausted{Op: op})
}
