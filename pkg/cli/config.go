package cli

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/appium-harness/pkg/config"
	"github.com/devicelab-dev/appium-harness/pkg/logger"
)

// loadConfig reads harness.yaml (from --config, or the working directory) and
// applies flag overrides. Flags win over the file.
func loadConfig(c *cli.Context) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)

	path := c.String("config")
	switch {
	case path == "":
		cfg, err = config.LoadFromDir(".")
	default:
		info, statErr := os.Stat(path)
		if statErr == nil && info.IsDir() {
			cfg, err = config.LoadFromDir(path)
		} else {
			cfg, err = config.Load(path)
		}
	}
	if err != nil {
		return nil, err
	}

	if c.IsSet("ip") {
		cfg.ServerIP = c.String("ip")
	}
	if c.IsSet("port") {
		cfg.Port = c.Int("port")
	}
	if c.IsSet("device") {
		cfg.DeviceID = c.String("device")
	}
	if c.IsSet("app") {
		cfg.App = c.String("app")
	}
	if dirs := c.StringSlice("resources"); len(dirs) > 0 {
		cfg.ResourceDirs = append(dirs, cfg.ResourceDirs...)
	}
	if c.IsSet("start-timeout") {
		cfg.StartTimeout = c.Duration("start-timeout")
	}
	if c.IsSet("log-file") {
		cfg.LogFile = c.String("log-file")
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// --log-file was already applied in setupLogging.
	if cfg.LogFile != "" && !c.IsSet("log-file") {
		if err := logger.Init(cfg.LogFile); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// setupLogging runs before every command.
func setupLogging(c *cli.Context) error {
	logger.SetDebug(c.Bool("verbose"))

	logFile := c.String("log-file")
	if logFile == "" {
		return nil
	}
	return logger.Init(logFile)
}

func closeLogging(*cli.Context) error {
	logger.Close()
	return nil
}
