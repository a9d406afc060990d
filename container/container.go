// Package container implements Lifecycle (component H): the
// parent-side container state machine and the child-side init entry
// point it re-execs into. Grounded on
// _examples/original_source/src/container.rs and child.rs for the
// state shape, and on the teacher's libcontainer/process_linux.go for
// the re-exec-self clone model (Go has no raw clone(2) with an
// arbitrary entry point the way child.rs's nix::sched::clone does).
package container

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"

	mapset "github.com/deckarep/golang-set"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/nakamura-shuta/bowl/config"
	bowlerrors "github.com/nakamura-shuta/bowl/errors"
	"github.com/nakamura-shuta/bowl/ipc"
	"github.com/nakamura-shuta/bowl/mount"
	"github.com/nakamura-shuta/bowl/namespace"
	"github.com/nakamura-shuta/bowl/resources"
	"github.com/nakamura-shuta/bowl/wordlist"
)

// State is the parent-side lifecycle state from spec.md §4.H's table.
type State int

const (
	Initialized State = iota
	Spawned
	Restricted
	Awaiting
	Reaped
	Cleaned
)

func (s State) String() string {
	switch s {
	case Initialized:
		return "initialized"
	case Spawned:
		return "spawned"
	case Restricted:
		return "restricted"
	case Awaiting:
		return "awaiting"
	case Reaped:
		return "reaped"
	case Cleaned:
		return "cleaned"
	default:
		return "unknown"
	}
}

// namespaceFlags are the six non-user namespace flags passed to
// clone via SysProcAttr.Cloneflags. CLONE_NEWUSER is deliberately
// excluded: the child unshares it itself in namespace.UserNamespace,
// preserving the deferred-user-namespace handshake that is the point
// of this runtime.
const namespaceFlags = unix.CLONE_NEWNS |
	unix.CLONE_NEWCGROUP |
	unix.CLONE_NEWPID |
	unix.CLONE_NEWIPC |
	unix.CLONE_NEWNET |
	unix.CLONE_NEWUTS

// liveHostnames enforces invariant 5 ("hostname unique per live
// container") across containers built in the same process, something
// the Rust distillation states but never actually enforces in code.
var liveHostnames = mapset.NewSet()

// Container is the parent-side handle on one container's lifecycle.
type Container struct {
	state   State
	opts    config.Options
	pair    ipc.Pair
	backend resources.Backend
	mount   mount.Engine
	cmd     *exec.Cmd
	pid     int
	reaped  bool
}

// New builds a Container from CLI-level parameters: command, uid, and
// mountRoot. It registers the freshly generated hostname in
// liveHostnames, failing with ContainerError if (with overwhelming
// improbability) it collides with another live container.
func New(command string, uid uint32, mountRoot string, addPaths []config.BindMount, backend resources.Backend) (*Container, error) {
	opts, pair, err := config.New(command, uid, mountRoot, addPaths, wordlist.Default)
	if err != nil {
		return nil, err
	}

	if liveHostnames.Contains(opts.Hostname) {
		pair.Close()
		return nil, bowlerrors.New(bowlerrors.ContainerError, 0)
	}
	liveHostnames.Add(opts.Hostname)

	return &Container{
		state:   Initialized,
		opts:    opts,
		pair:    pair,
		backend: backend,
	}, nil
}

// State reports the container's current lifecycle state.
func (c *Container) State() State { return c.state }

// Start runs the container end to end: kernel preflight,
// create_process, restrict_resources + handle_child_uid_map, wait for
// the child, and cleanup — matching spec.md §4.H's table and
// container.rs's start(). Any failure triggers cleanup; if cleanup
// itself fails, the original error is wrapped in CleanupFailure.
//
// restrict_resources must run before handle_child_uid_map: the latter's
// final act is the ack that releases the child from its handshake wait,
// so the pid has to already be attached to the cgroup before that ack
// is sent, or the child can execve the workload before pids.max/
// memory.max ever apply to it (invariant S4).
//
// The child's network namespace is left as created: no interfaces are
// configured in it and loopback is not brought up.
func (c *Container) Start() error {
	if err := checkKernelSupport(); err != nil {
		return c.failAndClean(err)
	}

	if err := c.createProcess(); err != nil {
		return c.failAndClean(err)
	}

	if err := resources.RestrictResources(c.backend, c.opts.Hostname, c.pid); err != nil {
		return c.failAndClean(err)
	}
	c.state = Restricted

	if err := namespace.HandleChildUIDMap(c.pid, c.pair.ParentFD); err != nil {
		return c.failAndClean(err)
	}

	c.state = Awaiting
	if err := c.cmd.Wait(); err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			return c.failAndClean(err)
		}
	}
	c.reaped = true
	c.state = Reaped

	return c.clean()
}

// createProcess re-execs /proc/self/exe with a hidden "init" argv[0],
// the six non-user namespace flags set via SysProcAttr.Cloneflags, and
// the child's sync fd passed across exec via cmd.ExtraFiles rather
// than shared memory (design note 2). Matches child.rs's
// create_child_process, minus CLONE_NEWUSER (see namespaceFlags).
func (c *Container) createProcess() error {
	logrus.Debug("creating container process")

	self, err := os.Executable()
	if err != nil {
		return bowlerrors.New(bowlerrors.ChildProcessError, 0)
	}

	childFile := os.NewFile(uintptr(c.opts.SyncFD), "sync_fd")
	cmd := exec.Command(self, append([]string{"init"}, c.opts.Args...)...)
	cmd.Env = []string{
		"BOWL_MOUNT_ROOT=" + c.opts.MountRoot,
		"BOWL_HOSTNAME=" + c.opts.Hostname,
		fmt.Sprintf("BOWL_UID=%d", c.opts.UID),
		"BOWL_ADD_PATHS=" + encodeAddPaths(c.opts.AddPaths),
	}
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.ExtraFiles = []*os.File{childFile}
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Cloneflags: namespaceFlags,
	}

	if err := cmd.Start(); err != nil {
		return errors.Wrap(bowlerrors.New(bowlerrors.ChildProcessError, 0), "clone")
	}

	c.cmd = cmd
	c.pid = cmd.Process.Pid
	c.state = Spawned
	logrus.Debugf("container pid %d", c.pid)
	return nil
}

// failAndClean wraps a lifecycle error with a best-effort cleanup
// attempt, matching container.rs's start()'s CleanupFailure wrapping.
func (c *Container) failAndClean(original error) error {
	logrus.Debugf("error while running container: %v", original)
	if err := c.clean(); err != nil {
		return bowlerrors.Wrap(original)
	}
	return original
}

// clean releases the resources the parent holds: both ends of the
// socket pair, the still-live child (if any), and the cgroup subtree.
// Matches spec.md §4.H's Reaped→Cleaned transition. The mount step
// calls Clean on c.mount, which the parent never populates
// (SetMountPoint runs in the init child on its own Engine), so it is a
// no-op: the /tmp/bowl.<rand> staging directory the child creates is
// not removed by the parent.
func (c *Container) clean() error {
	logrus.Debug("cleaning up container")

	var firstErr error
	if err := c.pair.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	// Closing the pair unblocks a child still parked in its handshake
	// (namespace.UserNamespace's RecvBool), letting it fail out and
	// exit on its own; reap it so the parent never returns with the
	// child still alive, per §7's "waitpid is always called" rule.
	c.reapChild()

	if err := c.mount.Clean(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := resources.CleanCgroups(c.backend, c.opts.Hostname); err != nil && firstErr == nil {
		firstErr = err
	}

	liveHostnames.Remove(c.opts.Hostname)
	c.state = Cleaned
	return firstErr
}

// reapChild waits for the child exec.Cmd if one was spawned and hasn't
// already been waited on. Safe to call from both the happy path
// (already reaped, no-op) and every failAndClean cleanup path (child
// still running, blocked in its handshake, or already exited).
func (c *Container) reapChild() {
	if c.cmd == nil || c.reaped {
		return
	}
	if err := c.cmd.Wait(); err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			logrus.Debugf("reaping child during cleanup: %v", err)
		}
	}
	c.reaped = true
}

func encodeAddPaths(paths []config.BindMount) string {
	parts := make([]string, 0, len(paths))
	for _, p := range paths {
		parts = append(parts, p.HostSource+":"+p.ContainerTarget)
	}
	return strings.Join(parts, ",")
}

// decodeAddPaths is the inverse of encodeAddPaths, used by the init
// child to recover the bind-mount table passed over the environment.
func decodeAddPaths(encoded string) []mount.AddPath {
	if encoded == "" {
		return nil
	}
	var out []mount.AddPath
	for _, part := range strings.Split(encoded, ",") {
		hostAndTarget := strings.SplitN(part, ":", 2)
		if len(hostAndTarget) != 2 {
			continue
		}
		out = append(out, mount.AddPath{HostSource: hostAndTarget[0], ContainerTarget: hostAndTarget[1]})
	}
	return out
}
