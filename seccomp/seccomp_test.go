package seccomp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// SetSyscalls loads a real seccomp filter into the calling process,
// which is irreversible and would sandbox the test binary itself;
// these tests instead verify the rule tables exactly match spec.md
// §4.F's enumeration (invariant 8), which is the part worth pinning
// down in a unit test.

func TestUnconditionalDenyListExact(t *testing.T) {
	require.ElementsMatch(t, []string{
		"keyctl", "add_key", "request_key", "mbind", "migrate_pages",
		"move_pages", "set_mempolicy", "userfaultfd", "perf_event_open",
	}, unconditionalDeny)
}

func TestConditionalDenyTableExact(t *testing.T) {
	require.Len(t, conditionalDeny, 9)

	want := []conditionalRule{
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
	require.ElementsMatch(t, want, conditionalDeny)
}
