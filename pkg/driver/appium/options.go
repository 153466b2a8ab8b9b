package appium

import "strings"

// Capabilities that need no vendor prefix.
var w3cStandardCaps = map[string]bool{
	"platformName":              true,
	"browserName":               true,
	"browserVersion":            true,
	"acceptInsecureCerts":       true,
	"pageLoadStrategy":          true,
	"proxy":                     true,
	"setWindowRect":             true,
	"timeouts":                  true,
	"strictFileInteractability": true,
	"unhandledPromptBehavior":   true,
}

// UiAutomator2Options builds capabilities for an Android UiAutomator2 session.
type UiAutomator2Options struct {
	caps map[string]interface{}
}

// NewUiAutomator2Options returns options with automationName preset to UiAutomator2.
func NewUiAutomator2Options() *UiAutomator2Options {
	o := &UiAutomator2Options{caps: make(map[string]interface{})}
	return o.SetPlatformName("Android").SetAutomationName("UiAutomator2")
}

// SetPlatformName sets platformName.
func (o *UiAutomator2Options) SetPlatformName(name string) *UiAutomator2Options {
	return o.Set("platformName", name)
}

// SetDeviceName sets appium:deviceName.
func (o *UiAutomator2Options) SetDeviceName(name string) *UiAutomator2Options {
	return o.Set("deviceName", name)
}

// SetUDID sets appium:udid, which pins the session to one adb serial.
func (o *UiAutomator2Options) SetUDID(udid string) *UiAutomator2Options {
	return o.Set("udid", udid)
}

// SetApp sets appium:app, a local path or URL of the .apk.
func (o *UiAutomator2Options) SetApp(app string) *UiAutomator2Options {
	return o.Set("app", app)
}

// SetAutomationName sets appium:automationName.
func (o *UiAutomator2Options) SetAutomationName(name string) *UiAutomator2Options {
	return o.Set("automationName", name)
}

// Set stores any capability. Non-standard names get the "appium:" prefix.
func (o *UiAutomator2Options) Set(name string, value interface{}) *UiAutomator2Options {
	o.caps[capabilityKey(name)] = value
	return o
}

// Get returns a capability by its unprefixed or prefixed name.
func (o *UiAutomator2Options) Get(name string) (interface{}, bool) {
	v, ok := o.caps[capabilityKey(name)]
	return v, ok
}

// Capabilities returns a copy of the W3C capability map.
func (o *UiAutomator2Options) Capabilities() map[string]interface{} {
	out := make(map[string]interface{}, len(o.caps))
	for k, v := range o.caps {
		out[k] = v
	}
	return out
}

func capabilityKey(name string) string {
	if w3cStandardCaps[name] || strings.Contains(name, ":") {
		return name
	}
	return "appium:" + name
}
