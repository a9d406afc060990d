// Package namespace implements NamespaceEngine: the deferred
// user-namespace handshake between parent and child described in
// spec.md §4.E. Grounded on
// _examples/original_source/src/namespace.rs.
package namespace

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	bowlerrors "github.com/nakamura-shuta/bowl/errors"
	"github.com/nakamura-shuta/bowl/ipc"
)

// USERNSOffset and USERNSCount fix the host-side UID/GID range a
// container's namespace is mapped onto: "0 10000 2000" in
// /proc/<pid>/{uid,gid}_map, chosen so it never collides with real
// host identities. Values fixed by spec.md §4.E, unchanged from
// namespace.rs.
const (
	USERNSOffset = 10000
	USERNSCount  = 2000
)

// UserNamespace runs on the child side, inside the re-exec'd init
// process, after the hostname and mount steps and before the
// capability drop and seccomp filter. It
// attempts to unshare CLONE_NEWUSER itself (Cloneflags on the parent's
// exec.Cmd deliberately omits it — see SPEC_FULL.md's Process re-exec
// model), reports success over fd, waits for the parent's ack, then
// drops to uid (both real/effective/saved UID and GID).
func UserNamespace(fd int, uid uint32) error {
	logrus.Debugf("setting up user namespace with uid %d", uid)

	hasUserns := unix.Unshare(unix.CLONE_NEWUSER) == nil

	if err := ipc.SendBool(fd, hasUserns); err != nil {
		return err
	}

	failed, err := ipc.RecvBool(fd)
	if err != nil {
		return err
	}
	if failed {
		return bowlerrors.New(bowlerrors.NamespaceError, 0)
	}

	if hasUserns {
		logrus.Info("user namespace set up")
	} else {
		logrus.Info("user namespace not supported, continuing without it")
	}

	logrus.Debugf("switching to uid/gid %d", uid)

	if err := unix.Setgroups([]int{int(uid)}); err != nil {
		return bowlerrors.New(bowlerrors.NamespaceError, 1)
	}
	if err := unix.Setresgid(int(uid), int(uid), int(uid)); err != nil {
		return bowlerrors.New(bowlerrors.NamespaceError, 2)
	}
	if err := unix.Setresuid(int(uid), int(uid), int(uid)); err != nil {
		return bowlerrors.New(bowlerrors.NamespaceError, 3)
	}

	return nil
}

// HandleChildUIDMap runs on the parent side once it learns the
// child's pid. If the child reports it successfully unshared its own
// user namespace, the parent writes the fixed 0/10000/2000 mapping
// into /proc/<pid>/uid_map and gid_map; otherwise it leaves the
// container running in the host's user namespace. On success it sends
// false so UserNamespace proceeds; on a uid/gid_map write failure it
// sends true first, per spec.md §4.E's protocol, so the child fails
// fast with NamespaceError(0) instead of blocking on a parent that's
// about to tear it down.
func HandleChildUIDMap(pid int, fd int) error {
	hasUserns, err := ipc.RecvBool(fd)
	if err != nil {
		return err
	}

	if hasUserns {
		if err := writeIDMap(pid, "uid_map"); err != nil {
			_ = ipc.SendBool(fd, true)
			return err
		}
		if err := writeIDMap(pid, "gid_map"); err != nil {
			_ = ipc.SendBool(fd, true)
			return err
		}
	} else {
		logrus.Info("no user namespace set up from child process")
	}

	logrus.Debug("uid/gid map done, signaling child to continue")
	return ipc.SendBool(fd, false)
}

func writeIDMap(pid int, file string) error {
	path := fmt.Sprintf("/proc/%d/%s", pid, file)
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		if file == "uid_map" {
			return bowlerrors.New(bowlerrors.NamespaceError, 5)
		}
		return bowlerrors.New(bowlerrors.NamespaceError, 7)
	}
	defer f.Close()

	mapping := fmt.Sprintf("0 %d %d", USERNSOffset, USERNSCount)
	if _, err := f.WriteString(mapping); err != nil {
		if file == "uid_map" {
			return bowlerrors.New(bowlerrors.NamespaceError, 4)
		}
		return bowlerrors.New(bowlerrors.NamespaceError, 6)
	}
	return nil
}
