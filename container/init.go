package container

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/nakamura-shuta/bowl/capabilities"
	"github.com/nakamura-shuta/bowl/config"
	bowlerrors "github.com/nakamura-shuta/bowl/errors"
	"github.com/nakamura-shuta/bowl/mount"
	"github.com/nakamura-shuta/bowl/namespace"
	"github.com/nakamura-shuta/bowl/seccomp"
	"github.com/nakamura-shuta/bowl/wordlist"
)

// childSyncFD is the descriptor number the sync fd lands on inside the
// re-exec'd child: os/exec.Cmd.ExtraFiles appends after stdin/stdout/
// stderr (fds 0-2), so the first (and only) extra file is fd 3.
const childSyncFD = 3

// RunInit is the entry point for the hidden "init" re-exec command.
// It runs entirely inside the six-namespace clone and performs the
// child entry function from spec.md §4.H step by step:
//  1. set_container_hostname
//  2. set_mount_point
//  3. user_namespace (handshake with the parent over the sync fd)
//  4. set_capabilities
//  5. set_syscalls
//  6. close(sync_fd)
//  7. execve(path, args)
// Any failure returns a non-zero exit code without panicking across
// the syscall boundary, matching the spec's contract.
func RunInit(args []string) int {
	hostname := os.Getenv("BOWL_HOSTNAME")
	mountRoot := os.Getenv("BOWL_MOUNT_ROOT")
	uid64, err := strconv.ParseUint(os.Getenv("BOWL_UID"), 10, 32)
	if err != nil {
		logrus.Errorf("invalid uid in environment: %v", err)
		return 1
	}
	uid := uint32(uid64)
	addPaths := decodeAddPaths(os.Getenv("BOWL_ADD_PATHS"))

	if err := config.SetHostname(hostname); err != nil {
		logrus.Errorf("set hostname: %v", err)
		return 1
	}

	var engine mount.Engine
	if err := engine.SetMountPoint(mountRoot, addPaths, wordlist.Default); err != nil {
		logrus.Errorf("set mount point: %v", err)
		return 1
	}

	if err := namespace.UserNamespace(childSyncFD, uid); err != nil {
		logrus.Errorf("user namespace: %v", err)
		return 1
	}

	if _, err := capabilities.SetCapabilities(); err != nil {
		logrus.Errorf("set capabilities: %v", err)
		return 1
	}

	if err := seccomp.SetSyscalls(); err != nil {
		logrus.Errorf("set syscalls: %v", err)
		return 1
	}

	if err := syscall.Close(childSyncFD); err != nil {
		logrus.Debugf("close sync fd: %v", err)
	}

	if len(args) == 0 {
		logrus.Error("no command to execute")
		return 1
	}
	path, lookErr := lookupPath(args[0])
	if lookErr != nil {
		logrus.Errorf("lookup path: %v", lookErr)
		return 1
	}

	env := os.Environ()
	if err := syscall.Exec(path, args, env); err != nil {
		logrus.Errorf("%v: %v", bowlerrors.New(bowlerrors.ChildProcessError, 1), err)
		return 1
	}
	return 0
}

func lookupPath(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty command")
	}
	if name[0] == '/' {
		return name, nil
	}
	return exec.LookPath(name)
}
