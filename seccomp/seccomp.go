// Package seccomp installs the child's syscall filter: default-allow,
// with a fixed unconditional deny list plus a table of
// argument-masked-equal conditional denies. Grounded on spec.md §4.F
// (the Rust original's syscalls.rs never filled this in beyond a
// TODO-stub default-allow context; the rule table below is taken
// directly from the specification). Uses seccomp/libseccomp-golang in
// place of syscallz, matching how runc's own seccomp package wraps the
// same C library.
package seccomp

import (
	"github.com/sirupsen/logrus"
	libseccomp "github.com/seccomp/libseccomp-golang"
	"golang.org/x/sys/unix"

	bowlerrors "github.com/nakamura-shuta/bowl/errors"
)

// unconditionalDeny is denied outright regardless of arguments.
var unconditionalDeny = []string{
	"keyctl",
	"add_key",
	"request_key",
	"mbind",
	"migrate_pages",
	"move_pages",
	"set_mempolicy",
	"userfaultfd",
	"perf_event_open",
}

// conditionalRule is one row of spec.md §4.F's conditional deny table:
// deny iff (arg[Index] & Mask) == Mask.
type conditionalRule struct {
	Syscall string
	Index   uint
	Mask    uint64
}

const (
	sISUID     = 0o4000
	sISGID     = 0o2000
	tIOCSTI    = 0x5412
	cloneNewUsr = unix.CLONE_NEWUSER
)

// conditionalDeny is spec.md §4.F's conditional deny table, unchanged.
var conditionalDeny = []conditionalRule{
	{Syscall: "chmod", Index: 1, Mask: sISUID},
	{Syscall: "fchmod", Index: 1, Mask: sISUID},
	{Syscall: "chmod", Index: 1, Mask: sISGID},
	{Syscall: "fchmod", Index: 1, Mask: sISGID},
	{Syscall: "fchmodat", Index: 2, Mask: sISUID},
	{Syscall: "fchmodat", Index: 2, Mask: sISGID},
	{Syscall: "unshare", Index: 0, Mask: uint64(cloneNewUsr)},
	{Syscall: "clone", Index: 0, Mask: uint64(cloneNewUsr)},
	{Syscall: "ioctl", Index: 1, Mask: tIOCSTI},
}

// SetSyscalls builds and loads the seccomp filter described above into
// the calling (child) process. Matches syscalls.rs's set_syscalls
// contract: default action Allow, denies return EPERM, and any load
// failure is SyscallsError(0).
func SetSyscalls() error {
	logrus.Debug("installing seccomp filter")

	filter, err := libseccomp.NewFilter(libseccomp.ActAllow)
	if err != nil {
		return bowlerrors.New(bowlerrors.SyscallsError, 1)
	}
	defer filter.Release()

	denyErrno := libseccomp.ActErrno.SetReturnCode(int16(unix.EPERM))

	for _, name := range unconditionalDeny {
		call, err := libseccomp.GetSyscallFromName(name)
		if err != nil {
			// Not every kernel/arch exposes every syscall name (e.g.
			// userfaultfd on very old kernels); skip what the running
			// kernel doesn't know rather than fail filter construction.
			logrus.Debugf("seccomp: unknown syscall %q, skipping", name)
			continue
		}
		if err := filter.AddRule(call, denyErrno); err != nil {
			return bowlerrors.New(bowlerrors.SyscallsError, 0)
		}
	}

	for _, rule := range conditionalDeny {
		call, err := libseccomp.GetSyscallFromName(rule.Syscall)
		if err != nil {
			logrus.Debugf("seccomp: unknown syscall %q, skipping", rule.Syscall)
			continue
		}
		cond, err := libseccomp.MakeCondition(uint(rule.Index), libseccomp.CompareMaskedEqual, rule.Mask, rule.Mask)
		if err != nil {
			return bowlerrors.New(bowlerrors.SyscallsError, 0)
		}
		if err := filter.AddRuleConditional(call, denyErrno, []libseccomp.ScmpCondition{cond}); err != nil {
			return bowlerrors.New(bowlerrors.SyscallsError, 0)
		}
	}

	if err := filter.Load(); err != nil {
		return bowlerrors.New(bowlerrors.SyscallsError, 0)
	}

	return nil
}
