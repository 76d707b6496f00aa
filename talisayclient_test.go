package talisayclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/menta2k/talisay-client/internal/config"
)

// isolateHome keeps the endpoint override store out of the real home
// directory.
func isolateHome(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
}

func TestNewFromEnv(t *testing.T) {
	isolateHome(t)
	t.Setenv("TALISAY_API_URL", "https://api.example.com")

	client, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if got := client.Endpoint(); got != "https://api.example.com" {
		t.Errorf("expected configured endpoint, got %s", got)
	}
}

func TestNewWithConfig(t *testing.T) {
	isolateHome(t)

	cfg := config.Default()
	cfg.APIURL = "https://api.example.com"
	cfg.UploadURL = "https://storage.example.com"

	client, err := NewWithConfig(cfg)
	if err != nil {
		t.Fatalf("NewWithConfig failed: %v", err)
	}
	if client.Endpoint() != "https://api.example.com" {
		t.Errorf("unexpected endpoint: %s", client.Endpoint())
	}
}

func TestEndpointOverride(t *testing.T) {
	isolateHome(t)

	cfg := config.Default()
	cfg.APIURL = "https://api.example.com"
	client, err := NewWithConfig(cfg)
	if err != nil {
		t.Fatalf("NewWithConfig failed: %v", err)
	}

	if err := client.SetEndpointOverride("https://tunnel.ngrok.io"); err != nil {
		t.Fatalf("SetEndpointOverride failed: %v", err)
	}
	if got := client.Endpoint(); got != "https://tunnel.ngrok.io" {
		t.Errorf("override must win, got %s", got)
	}

	if err := client.ClearEndpointOverride(); err != nil {
		t.Fatalf("ClearEndpointOverride failed: %v", err)
	}
	if got := client.Endpoint(); got != "https://api.example.com" {
		t.Errorf("clearing must revert to the configured URL, got %s", got)
	}
}

func TestHealthThroughFacade(t *testing.T) {
	isolateHome(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy", "service": "talisay-prediction-api"})
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Timeout = 5 * time.Second

	client, err := NewWithConfig(cfg)
	if err != nil {
		t.Fatalf("NewWithConfig failed: %v", err)
	}

	// The test server listens on a loopback address, which the configured
	// and auto-detected layers skip. The runtime override is returned
	// unconditionally, so it is the layer that can point at the server.
	if err := client.SetEndpointOverride(server.URL); err != nil {
		t.Fatalf("SetEndpointOverride failed: %v", err)
	}
	if got := client.Endpoint(); got != server.URL {
		t.Fatalf("override must win even for loopback URLs, got %s", got)
	}

	health, err := client.Health(context.Background())
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if !health.Healthy() {
		t.Errorf("expected healthy, got %s", health.Status)
	}
}

func TestGetVersion(t *testing.T) {
	if GetVersion() != Version {
		t.Error("GetVersion must return the package version")
	}
}
