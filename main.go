// +build linux

package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

// version is set at release time; kept as a plain string rather than
// wired through ldflags, matching the teacher's spec.go versioning
// simplicity.
const version = "0.1.0"

func main() {
	app := cli.NewApp()
	app.Name = "bowl"
	app.Usage = "a minimal Linux application container runtime"
	app.Version = version
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "debug",
			Usage: "enable debug-level logging to stderr and bowl.log",
		},
	}
	app.Before = func(context *cli.Context) error {
		return setupLogging(context.GlobalBool("debug"))
	}
	app.Commands = []cli.Command{
		runCommand,
		initCommand,
		specCommand,
	}

	if err := app.Run(os.Args); err != nil {
		logrus.Error(err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogging(debug bool) error {
	level := logrus.InfoLevel
	if debug {
		level = logrus.DebugLevel
	}
	logrus.SetLevel(level)

	logFile, err := os.Create("bowl.log")
	if err != nil {
		return fmt.Errorf("creating log file: %w", err)
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.AddHook(newFileHook(logFile, level))
	return nil
}

// fileHook duplicates log entries into bowl.log alongside the default
// stderr output, matching the dual-destination logging setup
// (TermLogger + WriteLogger) from the original's cli.rs.
type fileHook struct {
	file      *os.File
	formatter logrus.Formatter
	level     logrus.Level
}

func newFileHook(file *os.File, level logrus.Level) *fileHook {
	return &fileHook{file: file, formatter: &logrus.TextFormatter{FullTimestamp: true}, level: level}
}

func (h *fileHook) Levels() []logrus.Level {
	return logrus.AllLevels[:h.level+1]
}

func (h *fileHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.file.Write(line)
	return err
}
