package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/appium-harness/pkg/device"
	"github.com/devicelab-dev/appium-harness/pkg/server"
)

var devicesCommand = &cli.Command{
	Name:  "devices",
	Usage: "List connected Android devices (adb devices)",
	Description: `Runs "adb devices" and prints the id of every device in the "device" state.
Unauthorized and offline devices are not listed.

Examples:
  appium-harness devices
  appium-harness devices --details`,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "details",
			Usage: "Also print model, SDK level and brand",
		},
		&cli.StringFlag{
			Name:  "adb",
			Usage: "Path to adb (default: PATH, then $ANDROID_HOME/platform-tools)",
		},
	},
	Action: runDevices,
}

var entryPathCommand = &cli.Command{
	Name:   "entry-path",
	Usage:  "Print the resolved path of Appium's main.js",
	Action: runEntryPath,
}

var freePortCommand = &cli.Command{
	Name:   "free-port",
	Usage:  "Print a free TCP port on 127.0.0.1",
	Action: runFreePort,
}

func newEnumerator(c *cli.Context) *device.Enumerator {
	if path := c.String("adb"); path != "" {
		return device.NewWithPath(path)
	}
	return device.New()
}

func runDevices(c *cli.Context) error {
	out := c.App.Writer
	enum := newEnumerator(c)

	ids, err := enum.List(c.Context)
	for _, id := range ids {
		if !c.Bool("details") {
			fmt.Fprintln(out, id)
			continue
		}
		info := enum.Open(id).Info(c.Context)
		kind := "device"
		if info.IsEmulator {
			kind = "emulator"
		}
		fmt.Fprintf(out, "%s\t%s %s\tSDK %s\t%s\n", id, info.Brand, info.Model, info.SDK, kind)
	}

	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}
	if len(ids) == 0 {
		printWarning(c.App.ErrWriter, "No devices attached")
	}
	return nil
}

func runEntryPath(c *cli.Context) error {
	path, err := server.ResolveEntryPath()
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, path)
	return nil
}

func runFreePort(c *cli.Context) error {
	port, err := server.FindFreePort()
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, port)
	return nil
}
