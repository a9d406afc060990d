package resources

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeBackend is the test double spec.md §9's design note asks for:
// a Backend that records calls without touching real cgroupfs.
type fakeBackend struct {
	created  []string
	attached map[string]int
	destroyed []string
	failCreate bool
}

func (f *fakeBackend) Create(hostname string) error {
	if f.failCreate {
		return errTest
	}
	f.created = append(f.created, hostname)
	return nil
}

func (f *fakeBackend) Attach(hostname string, pid int) error {
	if f.attached == nil {
		f.attached = map[string]int{}
	}
	f.attached[hostname] = pid
	return nil
}

func (f *fakeBackend) Destroy(hostname string) error {
	f.destroyed = append(f.destroyed, hostname)
	return nil
}

var errTest = &testError{}

type testError struct{}

func (*testError) Error() string { return "forced failure" }

func TestRestrictResourcesCreatesAndAttaches(t *testing.T) {
	backend := &fakeBackend{}
	require.NoError(t, RestrictResources(backend, "box-abcd", 4242))
	require.Contains(t, backend.created, "box-abcd")
	require.Equal(t, 4242, backend.attached["box-abcd"])
}

func TestRestrictResourcesPropagatesCreateFailure(t *testing.T) {
	backend := &fakeBackend{failCreate: true}
	err := RestrictResources(backend, "box-abcd", 1)
	require.Error(t, err)
}

func TestCleanCgroupsDelegatesToBackend(t *testing.T) {
	backend := &fakeBackend{}
	require.NoError(t, CleanCgroups(backend, "box-abcd"))
	require.Contains(t, backend.destroyed, "box-abcd")
}

func TestFixedControllerValues(t *testing.T) {
	require.EqualValues(t, 256, CPUWeight)
	require.EqualValues(t, 1073741824, MemoryLimit)
	require.EqualValues(t, 1073741824, KmemLimit)
	require.EqualValues(t, 64, PidsMax)
	require.EqualValues(t, 50, IOWeight)
	require.EqualValues(t, 64, NofileRlimit)
}
