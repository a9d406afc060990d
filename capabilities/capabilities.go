// Package capabilities drops the fixed set of Linux capabilities
// spec.md §4.F names from the bounding and inheritable sets only,
// leaving permitted/effective untouched (Open Question, decided in
// SPEC_FULL.md: preserve this asymmetry — the container's root user
// still needs its remaining effective caps to finish setup before
// execve). Grounded on _examples/original_source/src/capa.rs, using
// moby/sys/capability (as used by buildah's chroot.setCapabilities and
// podman's pkg/capabilities) in place of capctl.
package capabilities

import (
	"github.com/moby/sys/capability"
	"github.com/sirupsen/logrus"
	"github.com/willf/bitset"

	bowlerrors "github.com/nakamura-shuta/bowl/errors"
)

// Drop is the fixed list of 21 capabilities removed from a container's
// bounding and inheritable sets, unchanged from capa.rs's
// CAPABILITIES_DROP.
var Drop = []capability.Cap{
	capability.CAP_AUDIT_CONTROL,
	capability.CAP_AUDIT_READ,
	capability.CAP_AUDIT_WRITE,
	capability.CAP_BLOCK_SUSPEND,
	capability.CAP_DAC_READ_SEARCH,
	capability.CAP_DAC_OVERRIDE,
	capability.CAP_FSETID,
	capability.CAP_IPC_LOCK,
	capability.CAP_MAC_ADMIN,
	capability.CAP_MAC_OVERRIDE,
	capability.CAP_MKNOD,
	capability.CAP_SETFCAP,
	capability.CAP_SYSLOG,
	capability.CAP_SYS_ADMIN,
	capability.CAP_SYS_BOOT,
	capability.CAP_SYS_MODULE,
	capability.CAP_SYS_NICE,
	capability.CAP_SYS_RAWIO,
	capability.CAP_SYS_RESOURCE,
	capability.CAP_SYS_TIME,
	capability.CAP_WAKE_ALARM,
}

// Cleared marks, within a single SetCapabilities call, each entry of
// Drop once it has been unset from both sets of the loaded state (every
// entry is marked; Unset reports nothing per capability) — used only
// for the debug log line's summary count, not for control flow.
type Cleared struct {
	set *bitset.BitSet
}

func (c Cleared) Count() uint {
	if c.set == nil {
		return 0
	}
	return c.set.Count()
}

// SetCapabilities clears Drop from the bounding and inheritable sets
// of the calling process, matching capa.rs's set_capa.
func SetCapabilities() (Cleared, error) {
	logrus.Debug("clearing unwanted capabilities")

	caps, err := capability.NewPid2(0)
	if err != nil {
		return Cleared{}, bowlerrors.New(bowlerrors.CapabilityError, 0)
	}
	if err := caps.Load(); err != nil {
		return Cleared{}, bowlerrors.New(bowlerrors.CapabilityError, 0)
	}

	cleared := bitset.New(uint(len(Drop)))
	caps.Unset(capability.BOUNDING, Drop...)
	caps.Unset(capability.INHERITABLE, Drop...)
	for i := range Drop {
		cleared.Set(uint(i))
	}

	if err := caps.Apply(capability.BOUNDS | capability.CAPS); err != nil {
		return Cleared{}, bowlerrors.New(bowlerrors.CapabilityError, 0)
	}

	logrus.Debugf("cleared %d capabilities from bounding and inheritable sets", cleared.Count())
	return Cleared{set: cleared}, nil
}
