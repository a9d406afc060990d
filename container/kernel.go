package container

import (
	"os"
	"strings"

	"github.com/Masterminds/semver"

	bowlerrors "github.com/nakamura-shuta/bowl/errors"
)

// minKernelVersion is the earliest kernel release with a trustworthy
// unified cgroup v2 hierarchy and the unprivileged user-namespace
// unshare path this runtime depends on. Checked before create_process
// rather than failing deep inside ResourceEngine, so a container on an
// unsupported host fails fast with a clear error (SPEC_FULL.md's
// Kernel preflight addition to component H).
var minKernelVersion, _ = semver.NewVersion("4.15.0")

// checkKernelSupport parses /proc/sys/kernel/osrelease and compares it
// against minKernelVersion.
func checkKernelSupport() error {
	raw, err := os.ReadFile("/proc/sys/kernel/osrelease")
	if err != nil {
		return bowlerrors.New(bowlerrors.ContainerError, 1)
	}

	release := strings.TrimSpace(string(raw))
	// Strip any vendor/build suffix (e.g. "6.8.0-45-generic") down to
	// the dotted version semver can parse.
	if idx := strings.IndexAny(release, "-+"); idx != -1 {
		release = release[:idx]
	}

	version, err := semver.NewVersion(release)
	if err != nil {
		// Can't tell: prefer to proceed rather than block a container
		// on an unparsable but possibly fine kernel string.
		return nil
	}

	if version.LessThan(minKernelVersion) {
		return bowlerrors.New(bowlerrors.ContainerError, 2)
	}
	return nil
}
