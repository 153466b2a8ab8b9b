package appium

import (
	"context"
	"fmt"

	"github.com/devicelab-dev/appium-harness/pkg/core"
	"github.com/devicelab-dev/appium-harness/pkg/logger"
)

// Driver is an open Android session.
type Driver struct {
	client *Client
}

// NewAndroidDriver opens a session on serverURL with the given options.
func NewAndroidDriver(ctx context.Context, serverURL string, opts *UiAutomator2Options) (*Driver, error) {
	client := NewClient(serverURL)
	caps := opts.Capabilities()

	logger.Info("Creating Appium session on %s with capabilities: %v", serverURL, caps)
	if err := client.Connect(ctx, caps); err != nil {
		return nil, core.ErrSessionCreate.WithCause(err)
	}
	logger.Info("Appium session created: %s (platform: %s)", client.SessionID(), client.Platform())

	return &Driver{client: client}, nil
}

// SessionID returns the session id, or "" after Quit.
func (d *Driver) SessionID() string {
	return d.client.SessionID()
}

// Client returns the underlying HTTP client.
func (d *Driver) Client() *Client {
	return d.client
}

// FindByAccessibilityID finds an element by its accessibility id (content-desc on Android).
func (d *Driver) FindByAccessibilityID(ctx context.Context, id string) (string, error) {
	elemID, err := d.client.FindElement(ctx, ByAccessibilityID, id)
	if err != nil {
		return "", core.ErrElementNotFound.
			WithMessage(fmt.Sprintf("element not found: %s=%q", ByAccessibilityID, id)).
			WithCause(err)
	}
	return elemID, nil
}

// Click clicks an element returned by a Find call.
func (d *Driver) Click(ctx context.Context, elementID string) error {
	return d.client.ClickElement(ctx, elementID)
}

// Quit ends the session. Safe to call more than once.
func (d *Driver) Quit(ctx context.Context) error {
	if d.client.SessionID() == "" {
		return nil
	}
	id := d.client.SessionID()
	if err := d.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("quit session %s: %w", id, err)
	}
	logger.Info("Appium session closed: %s", id)
	return nil
}
