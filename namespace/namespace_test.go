package namespace

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nakamura-shuta/bowl/ipc"
)

func TestHandleChildUIDMapNoUserns(t *testing.T) {
	pair, err := ipc.CreatePair()
	require.NoError(t, err)
	defer pair.Close()

	done := make(chan error, 1)
	go func() {
		done <- ipc.SendBool(pair.ChildFD, false)
	}()
	require.NoError(t, <-done)

	require.NoError(t, HandleChildUIDMap(os.Getpid(), pair.ParentFD))

	ack, err := ipc.RecvBool(pair.ChildFD)
	require.NoError(t, err)
	require.False(t, ack)
}

func TestUSERNSConstants(t *testing.T) {
	require.Equal(t, 10000, USERNSOffset)
	require.Equal(t, 2000, USERNSCount)
}
