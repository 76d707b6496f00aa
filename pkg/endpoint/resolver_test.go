package endpoint

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestResolver(t *testing.T, buildURL string) *Resolver {
	t.Helper()
	r := NewWithStore(buildURL, filepath.Join(t.TempDir(), "endpoint.json"))
	r.detectHost = func() string { return "" }
	return r
}

func TestResolveDefault(t *testing.T) {
	r := newTestResolver(t, "")
	if got := r.Resolve(); got != DefaultBaseURL {
		t.Errorf("expected default %s, got %s", DefaultBaseURL, got)
	}
}

func TestResolveBuildURL(t *testing.T) {
	r := newTestResolver(t, "https://api.example.com/")
	if got := r.Resolve(); got != "https://api.example.com" {
		t.Errorf("expected build URL, got %s", got)
	}
}

func TestResolveSkipsLoopbackBuildURL(t *testing.T) {
	tests := []struct {
		name     string
		buildURL string
	}{
		{"localhost", "http://localhost:5000"},
		{"loopback ip", "http://127.0.0.1:5000"},
		{"wildcard", "http://0.0.0.0:5000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestResolver(t, tt.buildURL)
			if got := r.Resolve(); got != DefaultBaseURL {
				t.Errorf("loopback build URL should be skipped, got %s", got)
			}
		})
	}
}

func TestResolveDetectedHost(t *testing.T) {
	r := newTestResolver(t, "http://localhost:5000")
	r.detectHost = func() string { return "192.168.1.7" }

	if got := r.Resolve(); got != "http://192.168.1.7:5000" {
		t.Errorf("expected detected host URL, got %s", got)
	}
}

func TestOverridePrecedence(t *testing.T) {
	r := newTestResolver(t, "https://api.example.com")
	r.detectHost = func() string { return "192.168.1.7" }

	if err := r.SetOverride("https://tunnel.ngrok.io/"); err != nil {
		t.Fatalf("SetOverride failed: %v", err)
	}
	if got := r.Resolve(); got != "https://tunnel.ngrok.io" {
		t.Errorf("override must win, got %s", got)
	}

	// Setting the override again keeps winning regardless of order.
	if err := r.SetOverride("https://other.ngrok.io"); err != nil {
		t.Fatalf("SetOverride failed: %v", err)
	}
	if got := r.Resolve(); got != "https://other.ngrok.io" {
		t.Errorf("latest override must win, got %s", got)
	}

	if err := r.ClearOverride(); err != nil {
		t.Fatalf("ClearOverride failed: %v", err)
	}
	if got := r.Resolve(); got != "https://api.example.com" {
		t.Errorf("clearing must revert to the build URL, got %s", got)
	}
}

func TestOverridePersists(t *testing.T) {
	store := filepath.Join(t.TempDir(), "endpoint.json")

	first := NewWithStore("", store)
	first.detectHost = func() string { return "" }
	if err := first.SetOverride("https://tunnel.ngrok.io"); err != nil {
		t.Fatalf("SetOverride failed: %v", err)
	}

	// A fresh resolver sees the persisted value after Load.
	second := NewWithStore("", store)
	second.detectHost = func() string { return "" }
	if err := second.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := second.Resolve(); got != "https://tunnel.ngrok.io" {
		t.Errorf("expected persisted override, got %s", got)
	}

	if err := second.ClearOverride(); err != nil {
		t.Fatalf("ClearOverride failed: %v", err)
	}

	third := NewWithStore("", store)
	third.detectHost = func() string { return "" }
	if err := third.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := third.Resolve(); got != DefaultBaseURL {
		t.Errorf("cleared override must not survive a reload, got %s", got)
	}
}

func TestLoadMissingStore(t *testing.T) {
	r := NewWithStore("", filepath.Join(t.TempDir(), "missing", "endpoint.json"))
	if err := r.Load(); err != nil {
		t.Errorf("missing store file must not be an error: %v", err)
	}
}

func TestSetOverrideInvalid(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"empty", ""},
		{"no scheme", "api.example.com"},
		{"bad scheme", "ftp://api.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestResolver(t, "")
			if err := r.SetOverride(tt.url); err == nil {
				t.Errorf("expected error for %q", tt.url)
			}
		})
	}
}

func TestPersistKeepsUnrelatedKeys(t *testing.T) {
	store := filepath.Join(t.TempDir(), "endpoint.json")
	if err := os.WriteFile(store, []byte(`{"talisay.theme":"dark"}`), 0644); err != nil {
		t.Fatal(err)
	}

	r := NewWithStore("", store)
	r.detectHost = func() string { return "" }
	if err := r.SetOverride("https://tunnel.ngrok.io"); err != nil {
		t.Fatalf("SetOverride failed: %v", err)
	}

	data, err := os.ReadFile(store)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(data); !strings.Contains(got, "talisay.theme") {
		t.Errorf("unrelated keys must survive a write, got %s", got)
	}
}
