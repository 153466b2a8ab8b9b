package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/appium-harness/pkg/harness"
	"github.com/devicelab-dev/appium-harness/pkg/logger"
)

var runCommand = &cli.Command{
	Name:  "run",
	Usage: "Start Appium, open a UiAutomator2 session on the first device, click, tear down",
	Description: `Runs the full harness cycle:
  1. start Appium on --ip/--port (a free port when 0)
  2. pick --device or the first device from adb devices
  3. resolve --app in the resource directories
  4. open a UiAutomator2 session and click each --click accessibility id
  5. quit the session and stop Appium

Examples:
  appium-harness run --click App
  appium-harness --device emulator-5554 --app /tmp/app.apk run --click App --click Activity`,
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "click",
			Usage: "Accessibility id to click after the session opens (repeatable)",
		},
		&cli.StringFlag{
			Name:  "adb",
			Usage: "Path to adb (default: PATH, then $ANDROID_HOME/platform-tools)",
		},
	},
	Action: runHarness,
}

func runHarness(c *cli.Context) error {
	out := c.App.Writer

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(c)
	defer stop()

	mgr := newManager(c, cfg)
	h := harness.New(cfg, mgr, newEnumerator(c))
	defer func() {
		// ctx may already be cancelled by a signal.
		h.Teardown(context.Background())
	}()

	printSetupStep(out, "Setting up Appium session...")
	if err := h.Setup(ctx); err != nil {
		printFailure(out, err.Error())
		return fmt.Errorf("setup: %w", err)
	}
	printSetupSuccess(out, fmt.Sprintf("Session %s on %s (%s)", h.Session().SessionID(), h.DeviceID(), h.AppPath()))

	for _, id := range c.StringSlice("click") {
		if err := h.ClickAccessibilityID(ctx, id); err != nil {
			printFailure(out, err.Error())
			return err
		}
		printSetupSuccess(out, "Clicked "+id)
	}

	logger.Info("Run finished")
	return nil
}
