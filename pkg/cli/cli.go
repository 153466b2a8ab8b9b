// Package cli provides the command-line interface for appium-harness.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to harness.yaml (or a directory containing it)",
		EnvVars: []string{"APPIUM_HARNESS_CONFIG"},
	},
	&cli.StringFlag{
		Name:    "ip",
		Usage:   "Address the Appium server binds to",
		EnvVars: []string{"APPIUM_HARNESS_IP"},
	},
	&cli.IntFlag{
		Name:    "port",
		Usage:   "Appium server port (0 picks a free port)",
		EnvVars: []string{"APPIUM_HARNESS_PORT"},
	},
	&cli.StringFlag{
		Name:    "device",
		Aliases: []string{"udid"},
		Usage:   "Device ID to run on (skips adb devices)",
		EnvVars: []string{"APPIUM_HARNESS_DEVICE"},
	},
	&cli.StringFlag{
		Name:    "app",
		Usage:   "App file (.apk), absolute or relative to a resource dir",
		EnvVars: []string{"APPIUM_HARNESS_APP"},
	},
	&cli.StringSliceFlag{
		Name:  "resources",
		Usage: "Extra directory to search for the app (repeatable)",
	},
	&cli.DurationFlag{
		Name:    "start-timeout",
		Usage:   "How long to wait for the Appium server to answer /status",
		EnvVars: []string{"APPIUM_HARNESS_START_TIMEOUT"},
	},
	&cli.StringFlag{
		Name:  "node",
		Usage: "Node.js binary used to run Appium (default: node on PATH)",
	},
	&cli.StringFlag{
		Name:    "log-file",
		Usage:   "Write harness logs to this file instead of stderr",
		EnvVars: []string{"APPIUM_HARNESS_LOG_FILE"},
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Usage:   "Enable debug logging",
		EnvVars: []string{"APPIUM_HARNESS_VERBOSE"},
	},
}

// NewApp builds the CLI application writing to stdout and stderr.
func NewApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:    "appium-harness",
		Usage:   "Start a local Appium server, pick an Android device and drive a session",
		Version: Version,
		Description: `appium-harness wraps a globally installed Appium server for Android tests.

Examples:
  appium-harness devices
  appium-harness entry-path
  appium-harness --port 4723 server
  appium-harness --app ApiDemos-debug.apk run --click App`,
		Flags:     GlobalFlags,
		Before:    setupLogging,
		After:     closeLogging,
		Writer:    stdout,
		ErrWriter: stderr,
		Commands: []*cli.Command{
			devicesCommand,
			entryPathCommand,
			freePortCommand,
			serverCommand,
			runCommand,
		},
	}
}

// Execute runs the CLI.
func Execute() {
	app := NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
