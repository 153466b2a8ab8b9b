package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/devicelab-dev/appium-harness/pkg/core"
	"github.com/devicelab-dev/appium-harness/pkg/logger"
)

// Manager owns at most one Appium Service.
//
// Manager is not safe for concurrent use; callers serialise Start and Stop.
type Manager struct {
	service      *Service
	resolveEntry func() (string, error)
	nodeJS       string
	startTimeout time.Duration
	out          io.Writer
}

// Option configures a Manager.
type Option func(*Manager)

// WithEntryResolver replaces ResolveEntryPath.
func WithEntryResolver(fn func() (string, error)) Option {
	return func(m *Manager) { m.resolveEntry = fn }
}

// WithNode sets the node binary passed to the Builder.
func WithNode(path string) Option {
	return func(m *Manager) { m.nodeJS = path }
}

// WithTimeout sets the server start timeout.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) { m.startTimeout = d }
}

// WithOutput sets where status lines ("Appium server started at: ...") are printed.
func WithOutput(w io.Writer) Option {
	return func(m *Manager) { m.out = w }
}

// NewManager creates a Manager with no running server.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		resolveEntry: ResolveEntryPath,
		startTimeout: DefaultStartTimeout,
		out:          os.Stdout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start resolves main.js and launches Appium on ip:port.
//
// Entry path errors (core.ErrUnsupportedPlatform, core.ErrResourceNotFound) are
// returned. A server that fails to come up is only reported on the output and in
// the log; check IsRunning to detect it. Starting while a server is running returns
// core.ErrServerAlreadyRunning and leaves it untouched.
func (m *Manager) Start(ctx context.Context, ip string, port int) error {
	if m.service != nil && m.service.IsRunning() {
		logger.Warn("Appium server already running at %s", m.service.URL())
		return core.ErrServerAlreadyRunning.WithDetails(map[string]interface{}{"url": m.service.URL()})
	}

	entryPath, err := m.resolveEntry()
	if err != nil {
		logger.Error("Cannot locate Appium: %v", err)
		return err
	}

	if m.service != nil {
		// Previous handle exited on its own; make sure nothing is left behind.
		if err := m.service.Stop(); err != nil {
			logger.Warn("Cleaning up previous Appium server: %v", err)
		}
	}

	if isPortInUse(ip, port) {
		logger.Warn("Port %s:%d is already in use; Appium will likely fail to bind", ip, port)
	}

	m.service = NewBuilder().
		UsingPort(port).
		WithAppiumJS(entryPath).
		WithIPAddress(ip).
		WithNodeJS(m.nodeJS).
		WithStartTimeout(m.startTimeout).
		WithLogWriter(logger.GetWriter()).
		Build()

	if err := m.service.Start(ctx); err != nil {
		logger.Error("Appium server start: %v", err)
	}

	if m.service.IsRunning() {
		logger.Info("Appium server started at: %s", m.service.URL())
		fmt.Fprintf(m.out, "Appium server started at: %s\n", m.service.URL())
	} else {
		logger.Error("Failed to start Appium server on %s:%d", ip, port)
		fmt.Fprintln(m.out, "Failed to start Appium server.")
	}
	return nil
}

// IsRunning reports whether the managed server is up. False before Start.
func (m *Manager) IsRunning() bool {
	if m.service == nil {
		return false
	}
	return m.service.IsRunning()
}

// URL returns the managed server's base URL, or "" before Start.
func (m *Manager) URL() string {
	if m.service == nil {
		return ""
	}
	return m.service.URL()
}

// Service exposes the current handle (nil before Start).
func (m *Manager) Service() *Service {
	return m.service
}

// Stop stops the server if one was started. Safe to call repeatedly and before Start.
func (m *Manager) Stop() {
	if m.service == nil {
		return
	}
	if err := m.service.Stop(); err != nil {
		logger.Error("Stopping Appium server: %v", err)
	}
	logger.Info("Appium server stopped.")
	fmt.Fprintln(m.out, "Appium server stopped.")
}
