package swaperr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOfAndIs(t *testing.T) {
	err := Errorf(Protocol, "expected method %s, got %s", "a", "b")

	kind, ok := KindOf(err)
	require.True(t, ok)
	require.Equal(t, Protocol, kind)
	require.True(t, Is(err, Protocol))
	require.False(t, Is(err, Network))
}

func TestKindOfUntaggedError(t *testing.T) {
	_, ok := KindOf(errPlain("boom"))
	require.False(t, ok)
}

type errPlain string

func (e errPlain) Error() string { return string(e) }

func TestWrapPreservesMessage(t *testing.T) {
	cause := errPlain("disk full")
	wrapped := Wrap(Disk, cause)

	require.Equal(t, "disk full", wrapped.Error())
	require.Equal(t, cause, wrapped.Unwrap())
	require.Equal(t, Disk, wrapped.Kind)
}

func TestKindStrings(t *testing.T) {
	require.Equal(t, "network", Network.String())
	require.Equal(t, "protocol", Protocol.String())
	require.Equal(t, "chain", Chain.String())
	require.Equal(t, "disk", Disk.String())
	require.Equal(t, "breach", Breach.String())
}
