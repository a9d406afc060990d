package resources

import (
	"context"
	"fmt"

	systemdDbus "github.com/coreos/go-systemd/v22/dbus"
	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"

	bowlerrors "github.com/nakamura-shuta/bowl/errors"
)

// systemdBackend delegates cgroup subtree creation to systemd as a
// transient scope unit, selected by bowl run's --systemd-cgroup flag
// instead of writing /sys/fs/cgroup/<hostname> directly. Grounded on
// the systemd-cgroup-driver path in podman's pkg/cgroups/systemd_linux.go.
type systemdBackend struct{}

// NewSystemdBackend returns a Backend that creates the container's
// cgroup via a systemd transient scope unit instead of writing
// cgroupfs directly.
func NewSystemdBackend() Backend { return systemdBackend{} }

func unitName(hostname string) string { return fmt.Sprintf("bowl-%s.scope", hostname) }

func (systemdBackend) Create(hostname string) error {
	conn, err := systemdDbus.NewSystemConnectionContext(context.Background())
	if err != nil {
		return bowlerrors.New(bowlerrors.ResourcesError, 0)
	}
	defer conn.Close()

	properties := []systemdDbus.Property{
		systemdDbus.PropDescription("bowl container " + hostname),
		systemdDbus.PropWants("bowl.slice"),
		{Name: "CPUWeight", Value: dbus.MakeVariant(uint64(CPUWeight))},
		{Name: "MemoryMax", Value: dbus.MakeVariant(uint64(MemoryLimit))},
		{Name: "TasksMax", Value: dbus.MakeVariant(uint64(PidsMax))},
		{Name: "IOWeight", Value: dbus.MakeVariant(uint64(IOWeight))},
		systemdDbus.PropPids(uint32(0)),
	}

	ch := make(chan string, 1)
	if _, err := conn.StartTransientUnitContext(context.Background(), unitName(hostname), "replace", properties, ch); err != nil {
		return bowlerrors.New(bowlerrors.ResourcesError, 0)
	}
	<-ch
	return nil
}

func (systemdBackend) Attach(hostname string, pid int) error {
	conn, err := systemdDbus.NewSystemConnectionContext(context.Background())
	if err != nil {
		return bowlerrors.New(bowlerrors.ResourcesError, 0)
	}
	defer conn.Close()

	props := []systemdDbus.Property{
		{Name: "PIDs", Value: dbus.MakeVariant([]uint32{uint32(pid)})},
	}
	if err := conn.SetUnitPropertiesContext(context.Background(), unitName(hostname), true, props...); err != nil {
		return bowlerrors.New(bowlerrors.ResourcesError, 0)
	}
	return nil
}

func (systemdBackend) Destroy(hostname string) error {
	conn, err := systemdDbus.NewSystemConnectionContext(context.Background())
	if err != nil {
		return bowlerrors.New(bowlerrors.ResourcesError, 3)
	}
	defer conn.Close()

	ch := make(chan string, 1)
	if _, err := conn.StopUnitContext(context.Background(), unitName(hostname), "replace", ch); err != nil {
		logrus.Debugf("systemd unit %s already gone: %v", unitName(hostname), err)
		return nil
	}
	<-ch
	return nil
}
