package swaperrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindString(t *testing.T) {
	require.Equal(t, "protocol", Protocol.String())
	require.Equal(t, "internal", Internal.String())
}

func TestRetriable(t *testing.T) {
	require.True(t, Execution.Retriable())
	require.False(t, Protocol.Retriable())
	require.False(t, Internal.Retriable())
}

func TestNewAndIs(t *testing.T) {
	err := New(Protocol, "expiry inequality violated")
	require.True(t, Is(err, Protocol))
	require.False(t, Is(err, Internal))
}

func TestWrapNil(t *testing.T) {
	require.Nil(t, Wrap(Chain, nil))
}

func TestWrapPreservesKind(t *testing.T) {
	cause := errors.New("rpc unreachable")
	wrapped := Wrap(Chain, cause)
	require.True(t, Is(wrapped, Chain))
	require.Contains(t, wrapped.Error(), "rpc unreachable")
}
