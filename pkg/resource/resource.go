// Package resource resolves test assets such as the app bundle to absolute paths.
package resource

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/devicelab-dev/appium-harness/pkg/core"
)

// Resolve returns the absolute path of name, searching dirs in order.
// An absolute name is checked as-is. Nothing is cached; every call hits the filesystem.
func Resolve(dirs []string, name string) (string, error) {
	if name == "" {
		return "", core.ErrResourceNotFound.WithMessage("resource name is empty")
	}

	if filepath.IsAbs(name) {
		if isFile(name) {
			return filepath.Clean(name), nil
		}
		return "", notFound(name, nil)
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name)
		if !isFile(candidate) {
			continue
		}
		abs, err := filepath.Abs(candidate)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", candidate, err)
		}
		return abs, nil
	}
	return "", notFound(name, dirs)
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func notFound(name string, dirs []string) error {
	msg := "Resource not found: " + name
	if len(dirs) > 0 {
		msg += " (searched " + strings.Join(dirs, ", ") + ")"
	}
	return core.ErrResourceNotFound.WithMessage(msg).WithDetails(map[string]interface{}{"name": name})
}
