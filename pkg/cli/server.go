package cli

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/appium-harness/pkg/config"
	"github.com/devicelab-dev/appium-harness/pkg/core"
	"github.com/devicelab-dev/appium-harness/pkg/logger"
	"github.com/devicelab-dev/appium-harness/pkg/server"
)

var serverCommand = &cli.Command{
	Name:  "server",
	Usage: "Start a local Appium server and keep it running until interrupted",
	Description: `Starts Appium from the global npm install and stops it on Ctrl-C or SIGTERM.

Examples:
  appium-harness --port 4723 server
  appium-harness --ip 0.0.0.0 --port 0 server`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "adb",
			Usage: "Path to adb used to report connected devices",
		},
	},
	Action: runServer,
}

// resolveEntryPath locates main.js for the server and run commands.
var resolveEntryPath = server.ResolveEntryPath

func newManager(c *cli.Context, cfg *config.Config) *server.Manager {
	opts := []server.Option{
		server.WithOutput(c.App.Writer),
		server.WithTimeout(cfg.StartTimeout),
		server.WithEntryResolver(resolveEntryPath),
	}
	if node := c.String("node"); node != "" {
		opts = append(opts, server.WithNode(node))
	}
	return server.NewManager(opts...)
}

// signalContext is cancelled on SIGINT or SIGTERM so a running server is
// stopped on the way out, including during the readiness wait.
func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
}

func runServer(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	port := cfg.Port
	if port == 0 {
		if port, err = server.FindFreePort(); err != nil {
			return err
		}
	}

	ctx, stop := signalContext(c)
	defer stop()

	mgr := newManager(c, cfg)
	defer mgr.Stop()

	if err := mgr.Start(ctx, cfg.ServerIP, port); err != nil {
		return err
	}
	if !mgr.IsRunning() {
		return core.ErrServerStart.WithDetails(map[string]interface{}{"ip": cfg.ServerIP, "port": port})
	}

	if ids := newEnumerator(c).ConnectedDeviceIDs(ctx); len(ids) > 0 {
		fmt.Fprintf(c.App.Writer, "Connected devices: %s\n", strings.Join(ids, ", "))
	} else {
		printWarning(c.App.ErrWriter, "No devices attached")
	}

	fmt.Fprintln(c.App.Writer, "Press Ctrl-C to stop.")
	<-ctx.Done()

	logger.Info("Shutdown requested")
	return nil
}
