// Package server manages a local Appium server process.
package server

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/devicelab-dev/appium-harness/pkg/core"
)

// unixEntryPath is where `npm install -g appium` puts the entry script on macOS and Linux.
const unixEntryPath = "/usr/local/lib/node_modules/appium/build/lib/main.js"

// windowsEntrySuffix is joined onto %APPDATA%.
var windowsEntrySuffix = []string{"npm", "node_modules", "appium", "build", "lib", "main.js"}

// ResolveEntryPath returns the absolute path of Appium's main.js for the running OS.
//
//	windows:      %APPDATA%\npm\node_modules\appium\build\lib\main.js
//	darwin/linux: /usr/local/lib/node_modules/appium/build/lib/main.js
//
// The path is derived from the OS only and is recomputed on every call.
func ResolveEntryPath() (string, error) {
	return resolveEntryPath(runtime.GOOS, os.Getenv, os.Stat)
}

func resolveEntryPath(goos string, getenv func(string) string, stat func(string) (os.FileInfo, error)) (string, error) {
	var entryPath string

	switch goos {
	case "windows":
		appData := getenv("APPDATA")
		if appData == "" {
			return "", core.ErrResourceNotFound.WithMessage("APPDATA is not set; cannot locate Appium main.js")
		}
		entryPath = filepath.Join(append([]string{appData}, windowsEntrySuffix...)...)
	case "darwin", "linux":
		entryPath = unixEntryPath
	default:
		return "", core.ErrUnsupportedPlatform.WithMessage("Unsupported operating system: " + goos)
	}

	if _, err := stat(entryPath); err != nil {
		return "", core.ErrResourceNotFound.
			WithMessage("Appium main.js not found at: " + entryPath).
			WithCause(err)
	}

	abs, err := filepath.Abs(entryPath)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", entryPath, err)
	}
	return abs, nil
}

// FindNode locates the Node.js binary used to run main.js.
func FindNode() (string, error) {
	if path, err := exec.LookPath("node"); err == nil {
		return path, nil
	}
	return "", core.ErrResourceNotFound.WithMessage("node not found in PATH; install Node.js to run Appium")
}
