package container

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nakamura-shuta/bowl/config"
	bowlerrors "github.com/nakamura-shuta/bowl/errors"
	"github.com/nakamura-shuta/bowl/wordlist"
)

type nullBackend struct{}

func (nullBackend) Create(string) error       { return nil }
func (nullBackend) Attach(string, int) error  { return nil }
func (nullBackend) Destroy(string) error      { return nil }

func TestNewRejectsDuplicateHostname(t *testing.T) {
	dir := t.TempDir()

	// A fixed word source makes both containers draw "abcd-abcd".
	saved := wordlist.Default
	wordlist.Default = wordlist.Fixed("abcd")
	defer func() { wordlist.Default = saved }()

	c1, err := New("bash", 0, dir, nil, nullBackend{})
	require.NoError(t, err)
	defer c1.pair.Close()
	defer liveHostnames.Remove(c1.opts.Hostname)

	_, err = New("bash", 0, dir, nil, nullBackend{})
	require.ErrorIs(t, err, bowlerrors.New(bowlerrors.ContainerError, 0))
}

func TestStateStringCoversAllStates(t *testing.T) {
	for s := Initialized; s <= Cleaned; s++ {
		require.NotEqual(t, "unknown", s.String())
	}
}

func TestEncodeDecodeAddPathsRoundTrip(t *testing.T) {
	paths := []config.BindMount{
		{HostSource: "/etc/resolv.conf", ContainerTarget: "etc/resolv.conf"},
		{HostSource: "/tmp/data", ContainerTarget: "data"},
	}
	encoded := encodeAddPaths(paths)
	decoded := decodeAddPaths(encoded)

	require.Len(t, decoded, 2)
	require.Equal(t, "/etc/resolv.conf", decoded[0].HostSource)
	require.Equal(t, "etc/resolv.conf", decoded[0].ContainerTarget)
}

func TestDecodeAddPathsEmpty(t *testing.T) {
	require.Nil(t, decodeAddPaths(""))
}

func TestReapChildNoopWithoutSpawnedProcess(t *testing.T) {
	var c Container
	c.reapChild()
	require.False(t, c.reaped)
}

func TestCleanSkipsReapWhenAlreadyReaped(t *testing.T) {
	dir := t.TempDir()
	c, err := New("bash", 0, dir, nil, nullBackend{})
	require.NoError(t, err)
	c.reaped = true

	require.NoError(t, c.clean())
	require.Equal(t, Cleaned, c.state)
}
