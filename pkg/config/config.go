// Package config handles configuration for appium-harness.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/appium-harness/pkg/core"
)

// Defaults applied by Load and LoadFromDir.
const (
	DefaultServerIP       = "127.0.0.1"
	DefaultApp            = "ApiDemos-debug.apk"
	DefaultPlatformName   = "Android"
	DefaultAutomationName = "UIAutomator2"
	DefaultStartTimeout   = 60 * time.Second
)

// Config represents the workspace configuration (harness.yaml).
type Config struct {
	// Server settings
	ServerIP     string        `yaml:"serverIP"`     // Address the Appium server binds to
	Port         int           `yaml:"port"`         // 0 picks a free port
	StartTimeout time.Duration `yaml:"startTimeout"` // How long to wait for /status

	// Session settings
	App            string   `yaml:"app"`            // APK file name, looked up in ResourceDirs
	ResourceDirs   []string `yaml:"resourceDirs"`   // Extra asset directories
	PlatformName   string   `yaml:"platformName"`   // W3C platformName
	AutomationName string   `yaml:"automationName"` // appium:automationName
	DeviceID       string   `yaml:"deviceId"`       // Skip enumeration when set

	LogFile string `yaml:"logFile"`
}

// Load loads configuration from a file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, core.ErrInvalidConfig.WithCause(fmt.Errorf("%s: %w", path, err))
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromDir looks for harness.yaml or harness.yml in the directory.
func LoadFromDir(dir string) (*Config, error) {
	for _, name := range []string{"harness.yaml", "harness.yml"} {
		configPath := filepath.Join(dir, name)
		if _, err := os.Stat(configPath); err == nil {
			return Load(configPath)
		}
	}

	// No config file found, return defaults
	return Default(), nil
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.ServerIP == "" {
		c.ServerIP = DefaultServerIP
	}
	if c.App == "" {
		c.App = DefaultApp
	}
	if c.PlatformName == "" {
		c.PlatformName = DefaultPlatformName
	}
	if c.AutomationName == "" {
		c.AutomationName = DefaultAutomationName
	}
	if c.StartTimeout <= 0 {
		c.StartTimeout = DefaultStartTimeout
	}
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return core.ErrInvalidConfig.WithMessage(fmt.Sprintf("port out of range: %d", c.Port))
	}
	return nil
}

// SearchDirs returns the asset directories in lookup order: configured dirs first,
// then <home>/resources, src/test/resources and resources under the working directory.
func (c *Config) SearchDirs() []string {
	dirs := make([]string, 0, len(c.ResourceDirs)+3)
	dirs = append(dirs, c.ResourceDirs...)
	dirs = append(dirs, GetResourcesDir(), filepath.Join("src", "test", "resources"), "resources")
	return dirs
}
