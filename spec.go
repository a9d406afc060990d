// +build linux

// bowl spec emits an example JSON configuration an operator can edit
// and feed back into `bowl run`, adapted from the teacher's spec.go
// (which emitted a full OCI bundle config.json for sysbox-runc). Bowl
// has no OCI bundle to produce — ContainerOptions is the whole config
// surface — so this command instead marshals a representative
// config.Options built via config.New.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	specs "github.com/opencontainers/runtime-spec/specs-go"
	"github.com/urfave/cli"

	"github.com/nakamura-shuta/bowl/config"
	"github.com/nakamura-shuta/bowl/ipc"
	"github.com/nakamura-shuta/bowl/mount"
	"github.com/nakamura-shuta/bowl/wordlist"
)

const exampleSpecFile = "bowl-spec.json"

// exampleSpec is what bowl spec actually writes: the representative
// config.Options, annotated with the default and add-path mounts
// rendered as OCI runtime-spec Mount descriptors purely for the
// operator's benefit -- bowl run itself never reads a "mounts" field
// back, it rebuilds the table itself via mount.SetMountPoint.
type exampleSpec struct {
	config.Options
	Mounts []specs.Mount `json:"mounts"`
}

var specCommand = cli.Command{
	Name:      "spec",
	Usage:     "create an example bowl container configuration file",
	ArgsUsage: "",
	Description: `The spec command writes an example container configuration to "` + exampleSpecFile + `"
in the current directory. It is a starting point: edit the Args, UID,
MountRoot, and AddPaths fields and pass them to "bowl run" directly --
bowl has no separate bundle format to load this file back from.`,
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "mount-dir, m",
			Value: ".",
			Usage: "host directory to use as the example's mount_root",
		},
	},
	Action: func(context *cli.Context) error {
		if _, err := os.Stat(exampleSpecFile); err == nil {
			return fmt.Errorf("file %s exists, remove it first", exampleSpecFile)
		}

		mountDir := context.String("mount-dir")
		opts, pair, err := config.New("/bin/sh", 0, mountDir, nil, wordlist.Default)
		if err != nil {
			return err
		}
		defer closePairQuietly(pair)

		addPaths := make([]mount.AddPath, 0, len(opts.AddPaths))
		for _, p := range opts.AddPaths {
			addPaths = append(addPaths, mount.AddPath{HostSource: p.HostSource, ContainerTarget: p.ContainerTarget})
		}
		spec := exampleSpec{
			Options: opts,
			Mounts:  append(mount.DefaultMountSpecs(), mount.AddPathSpecs(addPaths)...),
		}

		data, err := json.MarshalIndent(spec, "", "\t")
		if err != nil {
			return err
		}
		return os.WriteFile(exampleSpecFile, data, 0o644)
	},
}

func closePairQuietly(pair ipc.Pair) {
	_ = pair.Close()
}
