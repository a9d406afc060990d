// Package mount implements MountEngine: the pivot_root-based rootfs
// switch and the default virtual filesystem layout a freshly pivoted
// container needs to be usable. Grounded on
// _examples/original_source/src/mount.rs's set_mount_point algorithm,
// expanded with the default mount table from
// libsysbox/syscont/spec.go's sysboxMounts.
package mount

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/moby/sys/mountinfo"
	"github.com/opencontainers/selinux/go-selinux"
	specs "github.com/opencontainers/runtime-spec/specs-go"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	bowlerrors "github.com/nakamura-shuta/bowl/errors"
	"github.com/nakamura-shuta/bowl/wordlist"
)

// defaultVFS is the minimal virtual filesystem table mounted into the
// new root before pivot, trimmed from libsysbox/syscont/spec.go's
// sysboxMounts down to what a non-privileged container needs without a
// userspace /proc/sys emulation layer.
type vfsMount struct {
	source string
	target string
	fstype string
	flags  uintptr
	data   string
}

var defaultVFS = []vfsMount{
	{source: "proc", target: "proc", fstype: "proc", flags: unix.MS_NOEXEC | unix.MS_NOSUID | unix.MS_NODEV},
	{source: "tmpfs", target: "dev", fstype: "tmpfs", flags: unix.MS_NOSUID | unix.MS_STRICTATIME, data: "mode=755"},
	{source: "devpts", target: "dev/pts", fstype: "devpts", flags: unix.MS_NOEXEC | unix.MS_NOSUID, data: "newinstance,ptmxmode=0666,mode=0620"},
	{source: "sysfs", target: "sys", fstype: "sysfs", flags: unix.MS_NOEXEC | unix.MS_NOSUID | unix.MS_NODEV | unix.MS_RDONLY},
}

var defaultDeviceNodes = []string{"null", "zero", "full", "tty", "random", "urandom"}

// deviceNode is a character device's name and major/minor pair, fixed
// to the same values runc's specconv.go uses for its OCI default
// devices list.
type deviceNode struct {
	name         string
	major, minor uint32
}

var defaultDeviceMajorMinor = []deviceNode{
	{name: "null", major: 1, minor: 3},
	{name: "zero", major: 1, minor: 5},
	{name: "full", major: 1, minor: 7},
	{name: "tty", major: 5, minor: 0},
	{name: "random", major: 1, minor: 8},
	{name: "urandom", major: 1, minor: 9},
}

// Engine performs the pivot_root rootfs switch for a single container.
// It is stateless beyond the staging paths computed during SetMountPoint,
// recorded so Clean can find them again.
type Engine struct {
	newRoot string
	oldRoot string
}

// SetMountPoint implements spec.md §4.D's five-step algorithm:
//  1. Remount "/" MS_PRIVATE|MS_REC so nothing propagates out of the
//     new mount namespace.
//  2. Create and bind-mount mountRoot onto a fresh /tmp/bowl.<rand>
//     staging directory.
//  3. Bind-mount each addPaths entry into the staging directory.
//  4. Mount the default virtual filesystems and device nodes.
//  5. pivot_root into the staging directory and unmount/remove the old
//     root.
func (e *Engine) SetMountPoint(mountRoot string, addPaths []AddPath, src wordlist.Source) error {
	logrus.Debug("setting mount points")

	if err := unix.Mount("", "/", "", unix.MS_REC|unix.MS_PRIVATE, ""); err != nil {
		return bowlerrors.New(bowlerrors.MountError, 6)
	}

	suffix, ok := src.Word(12)
	if !ok {
		suffix = "fallback0001"
	}
	newRoot := filepath.Join("/tmp", fmt.Sprintf("bowl.%s", suffix))
	logrus.Debugf("mounting staging directory %s", newRoot)

	if err := os.MkdirAll(newRoot, 0o700); err != nil {
		return bowlerrors.New(bowlerrors.MountError, 2)
	}

	if err := unix.Mount(mountRoot, newRoot, "", unix.MS_BIND|unix.MS_PRIVATE, ""); err != nil {
		return bowlerrors.New(bowlerrors.MountError, 3)
	}

	for _, p := range addPaths {
		target, err := securejoin.SecureJoin(newRoot, p.ContainerTarget)
		if err != nil {
			return bowlerrors.New(bowlerrors.MountError, 3)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return bowlerrors.New(bowlerrors.MountError, 2)
		}
		if err := touchIfMissing(target); err != nil {
			return bowlerrors.New(bowlerrors.MountError, 2)
		}
		if err := unix.Mount(p.HostSource, target, "", unix.MS_BIND, ""); err != nil {
			return bowlerrors.New(bowlerrors.MountError, 3)
		}
	}

	if err := mountDefaultVFS(newRoot); err != nil {
		return err
	}
	if err := createDeviceNodes(newRoot); err != nil {
		return err
	}

	if selinux.GetEnabled() {
		if err := selinux.SetFileLabel(newRoot, selinux.PrivContainerMountLabel()); err != nil {
			logrus.Debugf("selinux relabel skipped: %v", err)
		}
	}

	logrus.Debug("pivoting root")
	oldRootTail, ok := src.Word(6)
	if !ok {
		oldRootTail = "oldold"
	}
	oldRootTail = "oldroot." + oldRootTail
	putOld := filepath.Join(newRoot, oldRootTail)
	if err := os.MkdirAll(putOld, 0o700); err != nil {
		return bowlerrors.New(bowlerrors.MountError, 2)
	}

	if err := unix.PivotRoot(newRoot, putOld); err != nil {
		return bowlerrors.New(bowlerrors.MountError, 4)
	}

	oldRoot := filepath.Join("/", oldRootTail)
	if err := unix.Chdir("/"); err != nil {
		return bowlerrors.New(bowlerrors.MountError, 5)
	}

	if err := unmountPath(oldRoot); err != nil {
		return err
	}
	if err := os.Remove(oldRoot); err != nil {
		return bowlerrors.New(bowlerrors.MountError, 1)
	}

	e.newRoot = newRoot
	e.oldRoot = oldRoot
	return nil
}

// AddPath is MountEngine's view of a config.BindMount: a host source
// bind-mounted at a new-root-relative target.
type AddPath struct {
	HostSource      string
	ContainerTarget string
}

// DefaultMountSpecs renders defaultVFS as OCI runtime-spec Mount
// descriptors, for `bowl spec`'s example output — SetMountPoint itself
// still issues the mounts via raw unix.Mount, since flags/data there
// need to be uintptr/string pairs rather than the option-string form
// specs.Mount uses.
func DefaultMountSpecs() []specs.Mount {
	out := make([]specs.Mount, 0, len(defaultVFS))
	for _, m := range defaultVFS {
		out = append(out, specs.Mount{
			Destination: "/" + m.target,
			Source:      m.source,
			Type:        m.fstype,
			Options:     mountOptions(m),
		})
	}
	return out
}

// AddPathSpecs renders addPaths as OCI runtime-spec Mount descriptors
// bound with the "bind" type, mirroring the MS_BIND mounts
// SetMountPoint issues for each entry.
func AddPathSpecs(addPaths []AddPath) []specs.Mount {
	out := make([]specs.Mount, 0, len(addPaths))
	for _, p := range addPaths {
		out = append(out, specs.Mount{
			Destination: "/" + strings.TrimPrefix(p.ContainerTarget, "/"),
			Source:      p.HostSource,
			Type:        "bind",
			Options:     []string{"bind"},
		})
	}
	return out
}

func mountOptions(m vfsMount) []string {
	opts := []string{}
	if m.data != "" {
		opts = append(opts, strings.Split(m.data, ",")...)
	}
	if m.flags&unix.MS_NOEXEC != 0 {
		opts = append(opts, "noexec")
	}
	if m.flags&unix.MS_NOSUID != 0 {
		opts = append(opts, "nosuid")
	}
	if m.flags&unix.MS_NODEV != 0 {
		opts = append(opts, "nodev")
	}
	if m.flags&unix.MS_RDONLY != 0 {
		opts = append(opts, "ro")
	}
	if m.flags&unix.MS_STRICTATIME != 0 {
		opts = append(opts, "strictatime")
	}
	return opts
}

func touchIfMissing(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

func mountDefaultVFS(newRoot string) error {
	for _, m := range defaultVFS {
		target := filepath.Join(newRoot, m.target)
		if err := os.MkdirAll(target, 0o755); err != nil {
			return bowlerrors.New(bowlerrors.MountError, 2)
		}
		if err := unix.Mount(m.source, target, m.fstype, m.flags, m.data); err != nil {
			logrus.Debugf("mount %s at %s failed: %v", m.fstype, target, err)
			return bowlerrors.New(bowlerrors.MountError, 3)
		}
	}
	return nil
}

// createDeviceNodes makes the standard OCI char devices with
// unix.Mknod directly -- there is no third-party device-node
// constructor in the pack; mrunalp/fileutils's public surface is
// CopyFile/CopyDirectory, not device nodes.
func createDeviceNodes(newRoot string) error {
	devDir := filepath.Join(newRoot, "dev")
	for _, d := range defaultDeviceMajorMinor {
		dst := filepath.Join(devDir, d.name)
		dev := int(unix.Mkdev(d.major, d.minor))
		if err := unix.Mknod(dst, unix.S_IFCHR|0o666, dev); err != nil {
			logrus.Debugf("device node %s skipped: %v", dst, err)
		}
	}
	return nil
}

// unmountPath detaches the old root lazily (MNT_DETACH), matching
// mount.rs's unmount_path.
func unmountPath(path string) error {
	if err := unix.Unmount(path, unix.MNT_DETACH); err != nil {
		return bowlerrors.New(bowlerrors.MountError, 0)
	}
	return nil
}

// Clean checks whether the staging directory is still visible on the
// host (the child's mount namespace death usually already tears it
// down) and removes it if so. Idempotent: called again on an already
// clean engine it is a no-op. Grounded on mount.rs's clean_mount, which
// spec.md's design note describes as "a no-op for future host-side
// work" — MountEngine now has real host-visible state worth checking.
func (e *Engine) Clean() error {
	if e.newRoot == "" {
		return nil
	}
	mounted, err := mountinfo.Mounted(e.newRoot)
	if err != nil {
		return nil
	}
	if mounted {
		if err := unix.Unmount(e.newRoot, unix.MNT_DETACH); err != nil {
			return bowlerrors.New(bowlerrors.MountError, 0)
		}
	}
	_ = os.RemoveAll(e.newRoot)
	return nil
}
