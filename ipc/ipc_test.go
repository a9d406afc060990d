package ipc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreatePairBothEndsUsable(t *testing.T) {
	p, err := CreatePair()
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, SendBool(p.ParentFD, true))
	got, err := RecvBool(p.ChildFD)
	require.NoError(t, err)
	require.True(t, got)
}

func TestHandshakeOrdering(t *testing.T) {
	// Mirrors spec.md invariant 3: exactly one child->parent message
	// followed by exactly one parent->child message.
	p, err := CreatePair()
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, SendBool(p.ChildFD, false))
	hasUserns, err := RecvBool(p.ParentFD)
	require.NoError(t, err)
	require.False(t, hasUserns)

	require.NoError(t, SendBool(p.ParentFD, false))
	ack, err := RecvBool(p.ChildFD)
	require.NoError(t, err)
	require.False(t, ack)
}

func TestCloseIsExactlyTwoDescriptors(t *testing.T) {
	p, err := CreatePair()
	require.NoError(t, err)
	require.NoError(t, p.Close())
	// Double close must not panic; callers treat it as best-effort.
	require.Error(t, p.Close())
}
