// +build linux

package main

import (
	"strings"

	"github.com/pkg/profile"
	"github.com/urfave/cli"

	"github.com/nakamura-shuta/bowl/config"
	"github.com/nakamura-shuta/bowl/container"
	"github.com/nakamura-shuta/bowl/resources"
)

var runCommand = cli.Command{
	Name:      "run",
	Usage:     "run a command inside a new container",
	ArgsUsage: "",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "command, c",
			Usage: "command (with arguments) to run inside the container",
		},
		cli.UintFlag{
			Name:  "uid, u",
			Usage: "UID the command runs as inside the container",
		},
		cli.StringFlag{
			Name:  "mount-dir, m",
			Usage: "host directory used as the container's new root filesystem",
		},
		cli.StringSliceFlag{
			Name:  "add-path, a",
			Usage: "host_path:container_path bind mount, repeatable",
		},
		cli.BoolFlag{
			Name:  "systemd-cgroup",
			Usage: "create the container's cgroup via a systemd transient scope instead of writing cgroupfs directly",
		},
		cli.BoolFlag{
			Name:  "profile",
			Usage: "write a pprof CPU profile of the parent process to ./cpu.pprof",
		},
	},
	Action: func(context *cli.Context) error {
		command := context.String("command")
		uid := uint32(context.Uint("uid"))
		mountDir := context.String("mount-dir")

		if context.Bool("profile") {
			defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
		}

		addPaths, err := parseAddPaths(context.StringSlice("add-path"))
		if err != nil {
			return err
		}

		backend := resources.NewFSBackend()
		if context.Bool("systemd-cgroup") {
			backend = resources.NewSystemdBackend()
		}

		c, err := container.New(command, uid, mountDir, addPaths, backend)
		if err != nil {
			return err
		}
		return c.Start()
	},
}

func parseAddPaths(raw []string) ([]config.BindMount, error) {
	out := make([]config.BindMount, 0, len(raw))
	for _, entry := range raw {
		parts := strings.SplitN(entry, ":", 2)
		if len(parts) != 2 {
			return nil, cli.NewExitError("add-path must be host_path:container_path", 1)
		}
		out = append(out, config.BindMount{HostSource: parts[0], ContainerTarget: parts[1]})
	}
	return out, nil
}
