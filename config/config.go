// Package config implements ContainerOptions: the immutable
// per-container configuration built once at container construction
// time and never mutated afterward. Grounded on config_opts.rs.
package config

import (
	"os"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"

	bowlerrors "github.com/nakamura-shuta/bowl/errors"
	"github.com/nakamura-shuta/bowl/ipc"
	"github.com/nakamura-shuta/bowl/wordlist"
)

// BindMount is one entry of ContainerOptions.AddPaths: a host source
// bound into the new root at a path relative to it (leading "/"
// stripped per spec.md §4.C).
type BindMount struct {
	HostSource      string
	ContainerTarget string
}

// Options is the immutable ContainerOptions record described in
// spec.md §3. Once built by New it must not be mutated; every
// component that needs it takes it by value or const reference.
type Options struct {
	Path       string
	Args       []string
	UID        uint32
	MountRoot  string
	Hostname   string
	SyncFD     int
	AddPaths   []BindMount
}

// New splits command on ASCII whitespace into argv, generates a random
// hostname, validates mountRoot exists and is a directory, canonicalizes
// each addPaths host source, strips the leading "/" from each target,
// and allocates the socket pair backing the handshake. It returns the
// Options (embedding the child's end of the pair as SyncFD) plus the
// full Pair so the caller (container.Container) can keep the parent's
// end.
func New(command string, uid uint32, mountRoot string, addPaths []BindMount, src wordlist.Source) (Options, ipc.Pair, error) {
	args := strings.Fields(command)
	if len(args) == 0 {
		return Options{}, ipc.Pair{}, bowlerrors.NewInvalidArgument("command")
	}

	info, err := os.Stat(mountRoot)
	if err != nil || !info.IsDir() {
		return Options{}, ipc.Pair{}, bowlerrors.NewInvalidArgument("mount_directory")
	}

	hostname, err := GenerateHostname(src)
	if err != nil {
		return Options{}, ipc.Pair{}, err
	}

	pair, err := ipc.CreatePair()
	if err != nil {
		return Options{}, ipc.Pair{}, err
	}

	resolved := make([]BindMount, 0, len(addPaths))
	for _, p := range addPaths {
		host, err := filepath.Abs(p.HostSource)
		if err != nil {
			pair.Close()
			return Options{}, ipc.Pair{}, bowlerrors.NewInvalidArgument("add_paths")
		}
		host, err = securejoin.SecureJoin(filepath.Dir(host), filepath.Base(host))
		if err != nil {
			pair.Close()
			return Options{}, ipc.Pair{}, bowlerrors.NewInvalidArgument("add_paths")
		}
		resolved = append(resolved, BindMount{
			HostSource:      host,
			ContainerTarget: strings.TrimPrefix(p.ContainerTarget, "/"),
		})
	}

	return Options{
		Path:      args[0],
		Args:      args,
		UID:       uid,
		MountRoot: mountRoot,
		Hostname:  hostname,
		SyncFD:    pair.ChildFD,
		AddPaths:  resolved,
	}, pair, nil
}
