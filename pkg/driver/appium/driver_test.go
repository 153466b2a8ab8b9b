package appium

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/devicelab-dev/appium-harness/pkg/core"
	"github.com/devicelab-dev/appium-harness/pkg/logger"
)

// newFakeAppium serves session create, find "App", click and delete.
func newFakeAppium(t *testing.T, calls *[]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls = append(*calls, r.Method+" "+r.URL.Path)
		switch {
		case r.Method == "POST" && r.URL.Path == "/session":
			writeJSON(w, map[string]interface{}{
				"value": map[string]interface{}{
					"sessionId":    "s1",
					"capabilities": map[string]interface{}{"platformName": "Android"},
				},
			})
		case r.Method == "POST" && r.URL.Path == "/session/s1/element":
			writeJSON(w, map[string]interface{}{
				"value": map[string]interface{}{w3cElementKey: "e1"},
			})
		case r.Method == "POST" && r.URL.Path == "/session/s1/element/e1/click",
			r.Method == "DELETE" && r.URL.Path == "/session/s1":
			writeJSON(w, map[string]interface{}{"value": nil})
		default:
			w.WriteHeader(http.StatusNotFound)
			writeJSON(w, map[string]interface{}{
				"value": map[string]interface{}{"error": "unknown command", "message": r.URL.Path},
			})
		}
	}))
}

func TestDriver_Lifecycle(t *testing.T) {
	var calls []string
	server := newFakeAppium(t, &calls)
	defer server.Close()

	ctx := context.Background()
	d, err := NewAndroidDriver(ctx, server.URL+"/", NewUiAutomator2Options().SetDeviceName("emulator-5554"))
	if err != nil {
		t.Fatalf("NewAndroidDriver failed: %v", err)
	}
	if d.SessionID() != "s1" {
		t.Errorf("SessionID = %q, want s1", d.SessionID())
	}

	elem, err := d.FindByAccessibilityID(ctx, "App")
	if err != nil {
		t.Fatalf("FindByAccessibilityID failed: %v", err)
	}
	if err := d.Click(ctx, elem); err != nil {
		t.Fatalf("Click failed: %v", err)
	}

	if err := d.Quit(ctx); err != nil {
		t.Fatalf("Quit failed: %v", err)
	}
	if err := d.Quit(ctx); err != nil {
		t.Fatalf("second Quit should be a no-op: %v", err)
	}

	want := []string{
		"POST /session",
		"POST /session/s1/element",
		"POST /session/s1/element/e1/click",
		"DELETE /session/s1",
	}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call[%d] = %q, want %q", i, calls[i], want[i])
		}
	}
}

func TestNewAndroidDriver_LogsPlatform(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(os.Stderr)

	var calls []string
	server := newFakeAppium(t, &calls)
	defer server.Close()

	d, err := NewAndroidDriver(context.Background(), server.URL, NewUiAutomator2Options())
	if err != nil {
		t.Fatalf("NewAndroidDriver failed: %v", err)
	}
	defer d.Quit(context.Background())

	if !strings.Contains(buf.String(), "Appium session created: s1 (platform: android)") {
		t.Errorf("session log line missing platform: %q", buf.String())
	}
}

func TestNewAndroidDriver_ServerDown(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewAndroidDriver(context.Background(), url, NewUiAutomator2Options())
	if !errors.Is(err, core.ErrSessionCreate) {
		t.Errorf("expected ErrSessionCreate, got %v", err)
	}
}

func TestDriver_FindMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		writeJSON(w, map[string]interface{}{
			"value": map[string]interface{}{"error": "no such element", "message": "nope"},
		})
	}))
	defer server.Close()

	d := &Driver{client: NewClient(server.URL)}
	d.client.sessionID = "s1"

	_, err := d.FindByAccessibilityID(context.Background(), "Missing")
	if !errors.Is(err, core.ErrElementNotFound) {
		t.Errorf("expected ErrElementNotFound, got %v", err)
	}
}
