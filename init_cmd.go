// +build linux

package main

import (
	"os"

	"github.com/urfave/cli"

	"github.com/nakamura-shuta/bowl/container"
)

// initCommand is the hidden re-exec entry point: container.createProcess
// launches "/proc/self/exe init <command> <args...>" with the six
// non-user namespace flags already applied by clone, so by the time
// this command's Action runs, it is already living inside the new
// namespaces and only needs to finish the child entry sequence.
var initCommand = cli.Command{
	Name:   "init",
	Usage:  "internal: container init process, not for direct use",
	Hidden: true,
	Action: func(context *cli.Context) error {
		code := container.RunInit(context.Args())
		os.Exit(code)
		return nil
	},
}
