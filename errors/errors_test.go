package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewInvalidArgumentMessage(t *testing.T) {
	err := NewInvalidArgument("mount_directory")
	require.EqualError(t, err, "invalid argument: mount_directory")
}

func TestIsMatchesSameKindAndCode(t *testing.T) {
	a := New(MountError, 4)
	b := New(MountError, 4)
	c := New(MountError, 5)
	require.True(t, errors.Is(a, b))
	require.False(t, errors.Is(a, c))
}

func TestIsMatchesInvalidArgumentByField(t *testing.T) {
	a := NewInvalidArgument("uid")
	b := NewInvalidArgument("uid")
	c := NewInvalidArgument("command")
	require.True(t, errors.Is(a, b))
	require.False(t, errors.Is(a, c))
}

func TestWrapProducesCleanupFailure(t *testing.T) {
	original := New(MountError, 3)
	wrapped := Wrap(original)
	require.Equal(t, CleanupFailure, wrapped.K)
	require.ErrorIs(t, wrapped, original)
}

func TestKindStringCoversAllKinds(t *testing.T) {
	for k := InvalidArgument; k <= CleanupFailure; k++ {
		require.NotEqual(t, "Unknown", k.String())
	}
}
