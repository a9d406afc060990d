package mount

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// pivot_root itself requires CAP_SYS_ADMIN and a real mount namespace,
// so SetMountPoint is not exercised by these unit tests. Here we cover
// the pieces that don't need root.

func TestCleanOnZeroValueEngineIsNoop(t *testing.T) {
	var e Engine
	require.NoError(t, e.Clean())
	require.NoError(t, e.Clean())
}

func TestDefaultVFSCoversProcDevSys(t *testing.T) {
	targets := map[string]bool{}
	for _, m := range defaultVFS {
		targets[m.target] = true
	}
	require.True(t, targets["proc"])
	require.True(t, targets["dev"])
	require.True(t, targets["dev/pts"])
	require.True(t, targets["sys"])
}

func TestDefaultDeviceNodesMatchOCIDefaults(t *testing.T) {
	require.ElementsMatch(t, []string{"null", "zero", "full", "tty", "random", "urandom"}, defaultDeviceNodes)
}

func TestDefaultDeviceMajorMinorMatchesOCIDefaults(t *testing.T) {
	want := map[string][2]uint32{
		"null":    {1, 3},
		"zero":    {1, 5},
		"full":    {1, 7},
		"tty":     {5, 0},
		"random":  {1, 8},
		"urandom": {1, 9},
	}
	require.Len(t, defaultDeviceMajorMinor, len(want))
	for _, d := range defaultDeviceMajorMinor {
		mm, ok := want[d.name]
		require.True(t, ok, "unexpected device node %s", d.name)
		require.Equal(t, mm[0], d.major)
		require.Equal(t, mm[1], d.minor)
	}
}

func TestTouchIfMissingCreatesEmptyFile(t *testing.T) {
	dir := t.TempDir()
	target := dir + "/resolv.conf"
	require.NoError(t, touchIfMissing(target))
	require.NoError(t, touchIfMissing(target))
	info, err := os.Stat(target)
	require.NoError(t, err)
	require.Zero(t, info.Size())
}

func TestDefaultMountSpecsMatchDefaultVFSCount(t *testing.T) {
	specs := DefaultMountSpecs()
	require.Len(t, specs, len(defaultVFS))
	for _, m := range specs {
		require.NotEmpty(t, m.Destination)
		require.NotEmpty(t, m.Type)
	}
}

func TestAddPathSpecsRendersBindType(t *testing.T) {
	specs := AddPathSpecs([]AddPath{{HostSource: "/etc/resolv.conf", ContainerTarget: "etc/resolv.conf"}})
	require.Len(t, specs, 1)
	require.Equal(t, "bind", specs[0].Type)
	require.Equal(t, "/etc/resolv.conf", specs[0].Destination)
}
