// Package resources implements ResourceEngine: cgroup v2 resource
// limits and the parent-process rlimit applied before the child is
// released. Grounded on _examples/original_source/src/resource.rs,
// with the direct-cgroupfs-write approach grounded on
// levatax-hakurei's internal/system/cgroup.go, behind a Backend
// interface per spec.md §9's design note ("the rewrite should depend
// on a trait so cgroup creation can be swapped for a test double").
package resources

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/opencontainers/runc/libcontainer/cgroups"

	units "github.com/docker/go-units"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	bowlerrors "github.com/nakamura-shuta/bowl/errors"
)

// Fixed controller values from spec.md §4.G, unchanged from resource.rs.
const (
	CPUWeight     = 256
	MemoryLimit   = 1073741824 // 1 GiB
	KmemLimit     = MemoryLimit
	PidsMax       = 64
	IOWeight      = 50
	NofileRlimit  = 64
	cgroupRootDir = "/sys/fs/cgroup"
)

// Backend creates, attaches to, and destroys the cgroup subtree
// backing a single container. fsBackend (direct cgroupfs writes) is
// the default; systemdBackend delegates to systemd and is selected by
// bowl run's --systemd-cgroup flag (there is no automatic detection of
// a systemd-managed slice). Swappable per
// spec.md §9 so container.Container's tests can substitute a no-op
// double.
type Backend interface {
	Create(hostname string) error
	Attach(hostname string, pid int) error
	Destroy(hostname string) error
}

// fsBackend writes controller files directly under
// /sys/fs/cgroup/<hostname>/, matching hakurei's cgroupOp.
type fsBackend struct{}

// NewFSBackend returns the default direct-cgroupfs Backend.
func NewFSBackend() Backend { return fsBackend{} }

func (fsBackend) Create(hostname string) error {
	if !cgroups.IsCgroup2UnifiedMode() {
		return bowlerrors.New(bowlerrors.ResourcesError, 4)
	}

	path := groupPath(hostname)
	logrus.Debugf("creating cgroup %s (cpu.weight=%d memory.max=%s pids.max=%d io.weight=%d)",
		path, CPUWeight, units.BytesSize(float64(MemoryLimit)), PidsMax, IOWeight)

	if err := os.MkdirAll(path, 0o755); err != nil {
		return bowlerrors.New(bowlerrors.ResourcesError, 0)
	}

	writes := map[string]string{
		"cpu.weight":      fmt.Sprintf("%d", CPUWeight),
		"memory.max":      fmt.Sprintf("%d", MemoryLimit),
		"memory.kmem.max": fmt.Sprintf("%d", KmemLimit),
		"pids.max":        fmt.Sprintf("%d", PidsMax),
		"io.weight":       fmt.Sprintf("%d", IOWeight),
	}
	for file, value := range writes {
		if err := os.WriteFile(filepath.Join(path, file), []byte(value), 0o644); err != nil {
			logrus.Debugf("cgroup controller file %s not writable: %v", file, err)
		}
	}
	return nil
}

func (fsBackend) Attach(hostname string, pid int) error {
	if err := cgroups.WriteCgroupProc(groupPath(hostname), pid); err != nil {
		return bowlerrors.New(bowlerrors.ResourcesError, 0)
	}
	return nil
}

func (fsBackend) Destroy(hostname string) error {
	path, err := filepath.EvalSymlinks(groupPath(hostname))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return bowlerrors.New(bowlerrors.ResourcesError, 3)
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return bowlerrors.New(bowlerrors.ResourcesError, 2)
	}
	return nil
}

func groupPath(hostname string) string {
	return filepath.Join(cgroupRootDir, hostname)
}

// RestrictResources creates the cgroup subtree for hostname, attaches
// pid to it via backend, then applies the fixed NOFILE rlimit to the
// calling (parent) process. The child already exists by the time this
// runs and rlimits are inherited at fork, so the limit does not reach
// that child; it applies to the parent and to processes it starts
// afterward.
func RestrictResources(backend Backend, hostname string, pid int) error {
	logrus.Debugf("restricting resources for hostname %s", hostname)

	if err := backend.Create(hostname); err != nil {
		return err
	}
	if err := backend.Attach(hostname, pid); err != nil {
		return err
	}

	limit := &unix.Rlimit{Cur: NofileRlimit, Max: NofileRlimit}
	if err := unix.Setrlimit(unix.RLIMIT_NOFILE, limit); err != nil {
		return bowlerrors.New(bowlerrors.ResourcesError, 1)
	}

	return nil
}

// CleanCgroups destroys the cgroup subtree for hostname. Idempotent:
// an already-removed subtree is treated as success, matching
// resource.rs's clean_cgroups contract ("cleanup is idempotent in
// spirit").
func CleanCgroups(backend Backend, hostname string) error {
	logrus.Debug("cleaning up cgroups")
	return backend.Destroy(hostname)
}
