// Package harness wires the Appium server, device discovery and an Android
// session together for a test run.
package harness

import (
	"context"
	"fmt"

	"github.com/devicelab-dev/appium-harness/pkg/config"
	"github.com/devicelab-dev/appium-harness/pkg/core"
	"github.com/devicelab-dev/appium-harness/pkg/driver/appium"
	"github.com/devicelab-dev/appium-harness/pkg/logger"
	"github.com/devicelab-dev/appium-harness/pkg/resource"
	"github.com/devicelab-dev/appium-harness/pkg/server"
)

// Lifecycle starts and stops the automation server. *server.Manager implements it.
type Lifecycle interface {
	Start(ctx context.Context, ip string, port int) error
	Stop()
	IsRunning() bool
	URL() string
}

// DevicePicker chooses the target device. *device.Enumerator implements it.
type DevicePicker interface {
	First(ctx context.Context) (string, error)
}

// SessionFactory opens a driver session. Defaults to appium.NewAndroidDriver.
type SessionFactory func(ctx context.Context, serverURL string, opts *appium.UiAutomator2Options) (Session, error)

// Session is the part of *appium.Driver the harness uses.
type Session interface {
	SessionID() string
	FindByAccessibilityID(ctx context.Context, id string) (string, error)
	Click(ctx context.Context, elementID string) error
	Quit(ctx context.Context) error
}

// Harness owns one server lifecycle and at most one session.
// It is not safe for concurrent use.
type Harness struct {
	cfg        *config.Config
	lifecycle  Lifecycle
	devices    DevicePicker
	newSession SessionFactory
	freePort   func() (int, error)

	port     int
	deviceID string
	appPath  string
	session  Session
}

// New creates a Harness. lifecycle and devices are required.
func New(cfg *config.Config, lifecycle Lifecycle, devices DevicePicker) *Harness {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Harness{
		cfg:       cfg,
		lifecycle: lifecycle,
		devices:   devices,
		newSession: func(ctx context.Context, url string, opts *appium.UiAutomator2Options) (Session, error) {
			return appium.NewAndroidDriver(ctx, url, opts)
		},
		freePort: server.FindFreePort,
	}
}

// WithSessionFactory replaces the session constructor.
func (h *Harness) WithSessionFactory(f SessionFactory) *Harness {
	h.newSession = f
	return h
}

// Setup starts the server, picks a device, resolves the app and opens a session.
// On error, whatever was started is left for Teardown to clean up.
func (h *Harness) Setup(ctx context.Context) error {
	port := h.cfg.Port
	if port == 0 {
		p, err := h.freePort()
		if err != nil {
			return err
		}
		port = p
	}
	h.port = port

	if err := h.lifecycle.Start(ctx, h.cfg.ServerIP, port); err != nil {
		return fmt.Errorf("start appium: %w", err)
	}
	if !h.lifecycle.IsRunning() {
		return core.ErrServerStart.WithDetails(map[string]interface{}{"ip": h.cfg.ServerIP, "port": port})
	}

	opts, err := h.Options(ctx)
	if err != nil {
		return err
	}

	session, err := h.newSession(ctx, h.lifecycle.URL(), opts)
	if err != nil {
		return err
	}
	h.session = session
	return nil
}

// Options picks the target device and app and builds the session options.
func (h *Harness) Options(ctx context.Context) (*appium.UiAutomator2Options, error) {
	deviceID, err := h.pickDevice(ctx)
	if err != nil {
		return nil, err
	}
	h.deviceID = deviceID

	appPath, err := resource.Resolve(h.cfg.SearchDirs(), h.cfg.App)
	if err != nil {
		return nil, err
	}
	h.appPath = appPath

	return appium.NewUiAutomator2Options().
		SetPlatformName(h.cfg.PlatformName).
		SetDeviceName(deviceID).
		SetUDID(deviceID).
		SetApp(appPath).
		SetAutomationName(h.cfg.AutomationName), nil
}

func (h *Harness) pickDevice(ctx context.Context) (string, error) {
	if h.cfg.DeviceID != "" {
		return h.cfg.DeviceID, nil
	}
	return h.devices.First(ctx)
}

// ClickAccessibilityID clicks the element with the given accessibility id.
func (h *Harness) ClickAccessibilityID(ctx context.Context, id string) error {
	if h.session == nil {
		return core.ErrSessionCreate.WithMessage("no active session; call Setup first")
	}
	elem, err := h.session.FindByAccessibilityID(ctx, id)
	if err != nil {
		return err
	}
	if err := h.session.Click(ctx, elem); err != nil {
		return fmt.Errorf("click %s: %w", id, err)
	}
	logger.Info("Clicked on %s: %s", appium.ByAccessibilityID, id)
	return nil
}

// Teardown quits the session if one exists, then stops the server.
// Safe after a failed or partial Setup and safe to call twice.
func (h *Harness) Teardown(ctx context.Context) {
	if h.session != nil {
		if err := h.session.Quit(ctx); err != nil {
			logger.Warn("Quit session: %v", err)
		}
		h.session = nil
	}
	h.lifecycle.Stop()
}

// Port returns the port chosen by Setup.
func (h *Harness) Port() int {
	return h.port
}

// DeviceID returns the device chosen by Setup.
func (h *Harness) DeviceID() string {
	return h.deviceID
}

// AppPath returns the resolved app path.
func (h *Harness) AppPath() string {
	return h.appPath
}

// Session returns the active session, or nil.
func (h *Harness) Session() Session {
	return h.session
}
