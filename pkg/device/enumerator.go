// Package device discovers Android devices via ADB.
package device

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/devicelab-dev/appium-harness/pkg/core"
	"github.com/devicelab-dev/appium-harness/pkg/logger"
)

const (
	listHeader   = "List of devices attached"
	deviceMarker = "\tdevice"

	// adb banners and warnings before the header can be arbitrarily long.
	maxLineSize = 16 * 1024 * 1024
)

// Enumerator lists connected devices by running `adb devices`.
// Each call spawns a fresh process; nothing is cached.
type Enumerator struct {
	adbPath string
}

// New returns an Enumerator for the adb binary found by FindADB.
// If adb cannot be located, the bare name "adb" is used and List reports the
// spawn failure.
func New() *Enumerator {
	adbPath, err := FindADB()
	if err != nil {
		logger.Debug("%v; falling back to plain \"adb\"", err)
		adbPath = "adb"
	}
	return &Enumerator{adbPath: adbPath}
}

// NewWithPath returns an Enumerator that runs the given adb binary.
func NewWithPath(adbPath string) *Enumerator {
	return &Enumerator{adbPath: adbPath}
}

// ADBPath returns the adb binary this enumerator runs.
func (e *Enumerator) ADBPath() string {
	return e.adbPath
}

// List runs `adb devices` and returns the ids of devices in the "device" state,
// in output order. On a spawn, read or exit failure it returns the ids gathered
// so far together with an error wrapping core.ErrProcessSpawn.
func (e *Enumerator) List(ctx context.Context) ([]string, error) {
	cmd := exec.CommandContext(ctx, e.adbPath, "devices")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, spawnError(err)
	}

	if err := cmd.Start(); err != nil {
		return nil, spawnError(err)
	}

	ids, readErr := ParseDevices(stdout)
	if readErr != nil {
		// Unblock the child before waiting on it.
		_, _ = io.Copy(io.Discard, stdout)
	}
	waitErr := cmd.Wait()

	if readErr != nil {
		return ids, spawnError(readErr)
	}
	if waitErr != nil {
		return ids, spawnError(waitErr)
	}

	logger.Debug("adb devices: %d device(s): %v", len(ids), ids)
	return ids, nil
}

// ConnectedDeviceIDs is the best-effort form of List: failures are logged and
// whatever was collected (possibly nothing) is returned. An empty result does not
// distinguish "no devices" from "adb failed".
func (e *Enumerator) ConnectedDeviceIDs(ctx context.Context) []string {
	ids, err := e.List(ctx)
	if err != nil {
		logger.Error("Error while getting ADB devices: %v", err)
	}
	return ids
}

// First returns the first connected device id. Partial output from a failed
// adb run is still used when it names a device; otherwise the failure is
// returned, or core.ErrNoDevices when adb listed nothing.
func (e *Enumerator) First(ctx context.Context) (string, error) {
	ids, err := e.List(ctx)
	if err != nil {
		logger.Error("Error while getting ADB devices: %v", err)
	}
	if len(ids) == 0 {
		if err != nil {
			return "", err
		}
		return "", core.ErrNoDevices
	}
	logger.Info("Using device %s (of %d connected)", ids[0], len(ids))
	return ids[0], nil
}

// ParseDevices extracts device ids from `adb devices` output.
//
// Lines are trimmed. Everything up to and including the "List of devices attached"
// header is ignored; after it, every line containing a tab followed by "device"
// contributes its first whitespace-separated field.
func ParseDevices(r io.Reader) ([]string, error) {
	var ids []string
	listStarted := false

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, listHeader) {
			listStarted = true
			continue
		}
		if !listStarted || line == "" {
			continue
		}
		if strings.Contains(line, deviceMarker) {
			ids = append(ids, strings.Fields(line)[0])
		}
	}
	return ids, scanner.Err()
}

func spawnError(err error) error {
	return core.ErrProcessSpawn.WithCause(fmt.Errorf("adb devices: %w", err))
}

// FindADB locates the ADB binary.
func FindADB() (string, error) {
	// Try PATH first
	if path, err := exec.LookPath("adb"); err == nil {
		return path, nil
	}

	name := "adb"
	if runtime.GOOS == "windows" {
		name = "adb.exe"
	}
	for _, env := range []string{"ANDROID_HOME", "ANDROID_SDK_ROOT"} {
		home := os.Getenv(env)
		if home == "" {
			continue
		}
		candidate := filepath.Join(home, "platform-tools", name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("adb not found in PATH or $ANDROID_HOME/platform-tools; ensure Android SDK is installed")
}
