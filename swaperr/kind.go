// Package swaperr wraps github.com/go-errors/errors values in the
// small Kind taxonomy the engine's failure semantics are described in
// terms of: Network, Protocol, Chain, Disk, Breach. It is a thin
// wrapping layer, not a replacement for go-errors — New and Errorf
// still build their stack trace through go-errors the way peer.go
// does, while Wrap tags an existing error as it is, without adding a
// stack trace. The tag exists so callers (the retry envelope,
// mark-bad attribution, the orchestrator's abort path) can switch on
// *why* an operation failed instead of parsing message text.
package swaperr

import "github.com/go-errors/errors"

// Kind classifies a failure by how the engine must react to it.
type Kind int

const (
	// Network covers socket errors, SOCKS5 handshake failures, and EOF.
	// Recoverable by the retry envelope; only surfaces on exhaustion.
	Network Kind = iota
	// Protocol covers tag mismatches, count mismatches, signature
	// verification failures, bad contract transactions, and
	// amount-conservation failures. Single-hop failures attributable to
	// one Maker trigger mark-bad + reselect; otherwise the round aborts.
	Protocol
	// Chain covers chain-client RPC failures: broadcast, lookups,
	// merkle proof fetches.
	Chain
	// Disk covers wallet persistence failures, surfaced as fatal after
	// in-memory state has already been updated.
	Disk
	// Breach covers a contract transaction observed on chain before
	// settlement. Always fatal; the round aborts.
	Breach
)

func (k Kind) String() string {
	switch k {
	case Network:
		return "network"
	case Protocol:
		return "protocol"
	case Chain:
		return "chain"
	case Disk:
		return "disk"
	case Breach:
		return "breach"
	default:
		return "unknown"
	}
}

// Error is a Kind-tagged error around its cause; the cause carries a
// go-errors/errors stack trace when built by New or Errorf.
type Error struct {
	Kind  Kind
	cause error
}

func (e *Error) Error() string { return e.cause.Error() }

// Unwrap exposes the underlying go-errors/errors value so errors.As
// still reaches it, even though this package's own Is/As use is
// limited to KindOf below (go-errors/errors predates Go's %w/Unwrap
// chain conventions, so this is deliberately shallow: one level).
func (e *Error) Unwrap() error { return e.cause }

// New builds a Kind-tagged error from a message, the same call shape
// as errors.New.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, cause: errors.New(msg)}
}

// Errorf builds a Kind-tagged error from a format string, the same
// call shape as errors.Errorf.
func Errorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, cause: errors.Errorf(format, args...)}
}

// Wrap tags an existing error with kind, preserving its message.
func Wrap(kind Kind, err error) *Error {
	return &Error{Kind: kind, cause: err}
}

// KindOf reports the Kind tagging err, and false if err was never
// tagged by this package.
func KindOf(err error) (Kind, bool) {
	se, ok := err.(*Error)
	if !ok {
		return 0, false
	}
	return se.Kind, true
}

// Is reports whether err was tagged with kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
