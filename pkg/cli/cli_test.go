package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/appium-harness/pkg/config"
	"github.com/devicelab-dev/appium-harness/pkg/core"
	"github.com/devicelab-dev/appium-harness/pkg/server"
)

// runLoadConfig runs loadConfig inside a minimal app carrying the global flags.
func runLoadConfig(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()
	var (
		cfg     *config.Config
		loadErr error
	)
	app := &cli.App{
		Name:  "appium-harness",
		Flags: GlobalFlags,
		Action: func(c *cli.Context) error {
			cfg, loadErr = loadConfig(c)
			return nil
		},
	}
	if err := app.Run(append([]string{"appium-harness"}, args...)); err != nil {
		t.Fatalf("app.Run: %v", err)
	}
	return cfg, loadErr
}

func writeFakeADB(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake adb needs a Unix shell")
	}
	path := filepath.Join(t.TempDir(), "adb")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0755); err != nil {
		t.Fatalf("write fake adb: %v", err)
	}
	return path
}

func TestGlobalFlags(t *testing.T) {
	names := map[string]bool{}
	for _, f := range GlobalFlags {
		for _, n := range f.Names() {
			names[n] = true
		}
	}

	for _, want := range []string{"config", "c", "ip", "port", "device", "udid", "app", "resources", "start-timeout", "node", "log-file", "verbose"} {
		if !names[want] {
			t.Errorf("missing global flag %q", want)
		}
	}
}

func TestNewApp_Commands(t *testing.T) {
	app := NewApp(&bytes.Buffer{}, &bytes.Buffer{})

	for _, name := range []string{"devices", "entry-path", "free-port", "server", "run"} {
		if app.Command(name) == nil {
			t.Errorf("missing command %q", name)
		}
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := runLoadConfig(t, "--config", t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.ServerIP != config.DefaultServerIP {
		t.Errorf("expected %s, got %s", config.DefaultServerIP, cfg.ServerIP)
	}
	if cfg.Port != 0 {
		t.Errorf("expected port 0, got %d", cfg.Port)
	}
	if cfg.App != config.DefaultApp {
		t.Errorf("expected %s, got %s", config.DefaultApp, cfg.App)
	}
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	yaml := "serverIP: 10.0.0.5\nport: 4723\napp: from-file.apk\nresourceDirs: [/from/file]\nstartTimeout: 90s\n"
	if err := os.WriteFile(filepath.Join(dir, "harness.yaml"), []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := runLoadConfig(t,
		"--config", dir,
		"--port", "4800",
		"--device", "emulator-5556",
		"--resources", "/from/flag",
		"--start-timeout", "2m",
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.ServerIP != "10.0.0.5" {
		t.Errorf("serverIP from file expected, got %s", cfg.ServerIP)
	}
	if cfg.Port != 4800 {
		t.Errorf("expected port 4800, got %d", cfg.Port)
	}
	if cfg.DeviceID != "emulator-5556" {
		t.Errorf("expected device emulator-5556, got %s", cfg.DeviceID)
	}
	if cfg.App != "from-file.apk" {
		t.Errorf("expected app from file, got %s", cfg.App)
	}
	if cfg.StartTimeout != 2*time.Minute {
		t.Errorf("expected 2m, got %v", cfg.StartTimeout)
	}
	if len(cfg.ResourceDirs) != 2 || cfg.ResourceDirs[0] != "/from/flag" || cfg.ResourceDirs[1] != "/from/file" {
		t.Errorf("flag dirs should come first, got %v", cfg.ResourceDirs)
	}
}

func TestLoadConfig_ExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("app: custom.apk\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := runLoadConfig(t, "-c", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.App != "custom.apk" {
		t.Errorf("expected custom.apk, got %s", cfg.App)
	}
}

func TestLoadConfig_InvalidPort(t *testing.T) {
	_, err := runLoadConfig(t, "--config", t.TempDir(), "--port", "70000")
	if !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestColor(t *testing.T) {
	saved := colorsEnabled
	defer func() { colorsEnabled = saved }()

	colorsEnabled = false
	if got := color(colorGreen); got != "" {
		t.Errorf("expected no color, got %q", got)
	}

	colorsEnabled = true
	if got := color(colorGreen); got != colorGreen {
		t.Errorf("expected %q, got %q", colorGreen, got)
	}
}

func TestPrintHelpers(t *testing.T) {
	saved := colorsEnabled
	defer func() { colorsEnabled = saved }()
	colorsEnabled = false

	var buf bytes.Buffer
	printSetupStep(&buf, "starting")
	printSetupSuccess(&buf, "started")
	printWarning(&buf, "careful")
	printFailure(&buf, "broken")

	want := "  ⏳ starting\n  ✓ started\n  ⚠ careful\n  ✗ broken\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestFreePortCommand(t *testing.T) {
	var out bytes.Buffer
	app := NewApp(&out, &bytes.Buffer{})

	if err := app.Run([]string{"appium-harness", "free-port"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	port, err := strconv.Atoi(strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("output is not a port: %q", out.String())
	}
	if port <= 0 || port > 65535 {
		t.Errorf("port out of range: %d", port)
	}
}

func TestEntryPathCommand(t *testing.T) {
	want, wantErr := server.ResolveEntryPath()

	var out bytes.Buffer
	app := NewApp(&out, &bytes.Buffer{})
	err := app.Run([]string{"appium-harness", "entry-path"})

	if wantErr != nil {
		if !errors.Is(err, core.ErrResourceNotFound) && !errors.Is(err, core.ErrUnsupportedPlatform) {
			t.Errorf("expected entry path error, got %v", err)
		}
		return
	}
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out.String()) != want {
		t.Errorf("expected %s, got %s", want, out.String())
	}
}

func TestDevicesCommand(t *testing.T) {
	adb := writeFakeADB(t, `printf 'List of devices attached\nemulator-5554\tdevice\nR58M123\tdevice\nphone\tunauthorized\n'`)

	var out bytes.Buffer
	app := NewApp(&out, &bytes.Buffer{})
	if err := app.Run([]string{"appium-harness", "devices", "--adb", adb}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.String() != "emulator-5554\nR58M123\n" {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestDevicesCommand_None(t *testing.T) {
	saved := colorsEnabled
	defer func() { colorsEnabled = saved }()
	colorsEnabled = false

	adb := writeFakeADB(t, `printf 'List of devices attached\n\n'`)

	var out, errOut bytes.Buffer
	app := NewApp(&out, &errOut)
	if err := app.Run([]string{"appium-harness", "devices", "--adb", adb}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.Len() != 0 {
		t.Errorf("expected no ids, got %q", out.String())
	}
	if !strings.Contains(errOut.String(), "No devices attached") {
		t.Errorf("expected warning, got %q", errOut.String())
	}
}

func TestDevicesCommand_Details(t *testing.T) {
	adb := writeFakeADB(t, `
if [ "$1" = "devices" ]; then
  printf 'List of devices attached\nemulator-5554\tdevice\n'
  exit 0
fi
case "$*" in
  *ro.product.model*) echo "sdk_gphone64" ;;
  *ro.build.version.sdk*) echo "34" ;;
  *ro.product.brand*) echo "google" ;;
  *ro.kernel.qemu*) echo "1" ;;
esac`)

	var out bytes.Buffer
	app := NewApp(&out, &bytes.Buffer{})
	if err := app.Run([]string{"appium-harness", "devices", "--details", "--adb", adb}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "emulator-5554\tgoogle sdk_gphone64\tSDK 34\temulator\n"
	if out.String() != want {
		t.Errorf("got %q, want %q", out.String(), want)
	}
}

func TestDevicesCommand_SpawnFailure(t *testing.T) {
	app := NewApp(&bytes.Buffer{}, &bytes.Buffer{})
	err := app.Run([]string{"appium-harness", "devices", "--adb", filepath.Join(t.TempDir(), "missing-adb")})

	if !errors.Is(err, core.ErrProcessSpawn) {
		t.Errorf("expected ErrProcessSpawn, got %v", err)
	}
}

func TestRunCommand_InvalidConfig(t *testing.T) {
	app := NewApp(&bytes.Buffer{}, &bytes.Buffer{})
	err := app.Run([]string{"appium-harness", "--config", t.TempDir(), "--port", "-1", "run"})

	if !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}
