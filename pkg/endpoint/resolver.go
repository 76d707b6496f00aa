// Package endpoint resolves the base URL of the prediction backend from
// layered configuration: a persisted runtime override, the build-time
// URL, an auto-detected host address, and a localhost fallback.
package endpoint

import (
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DefaultBaseURL is the last-resort endpoint; Resolve never fails.
const DefaultBaseURL = "http://localhost:5000"

// overrideKey namespaces the persisted value inside the store file.
const overrideKey = "talisay.api_url"

// Resolver decides which backend base URL is active. The runtime
// override, once set, strictly wins until it is explicitly cleared.
// Reads are served from an in-memory cache; storage is only touched by
// Load, SetOverride and ClearOverride.
type Resolver struct {
	mu        sync.RWMutex
	override  string
	buildURL  string
	storePath string

	// detectHost is swappable for tests.
	detectHost func() string
}

// New creates a Resolver. buildURL is the build-time configured backend
// URL and may be empty. The override store lives at StorePath().
func New(buildURL string) *Resolver {
	return &Resolver{
		buildURL:   buildURL,
		storePath:  StorePath(),
		detectHost: detectOutboundHost,
	}
}

// NewWithStore creates a Resolver persisting its override at storePath.
func NewWithStore(buildURL, storePath string) *Resolver {
	return &Resolver{
		buildURL:   buildURL,
		storePath:  storePath,
		detectHost: detectOutboundHost,
	}
}

// StorePath returns the default location of the override store file.
func StorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./talisay-endpoint.json"
	}
	return filepath.Join(home, ".config", "talisay-client", "endpoint.json")
}

// Load reads the persisted override into the in-memory cache. A missing
// store file is not an error; it simply means no override is set.
func (r *Resolver) Load() error {
	data, err := os.ReadFile(r.storePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read endpoint store: %w", err)
	}

	var store map[string]string
	if err := json.Unmarshal(data, &store); err != nil {
		return fmt.Errorf("failed to parse endpoint store: %w", err)
	}

	r.mu.Lock()
	r.override = store[overrideKey]
	r.mu.Unlock()
	return nil
}

// SetOverride validates, persists and caches a runtime override URL.
func (r *Resolver) SetOverride(rawURL string) error {
	rawURL = strings.TrimSuffix(strings.TrimSpace(rawURL), "/")
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid endpoint URL: %q", rawURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported endpoint scheme: %s", u.Scheme)
	}

	if err := r.persist(rawURL); err != nil {
		return err
	}
	r.mu.Lock()
	r.override = rawURL
	r.mu.Unlock()
	return nil
}

// ClearOverride removes the runtime override from storage and cache,
// reverting resolution to the lower layers.
func (r *Resolver) ClearOverride() error {
	if err := r.persist(""); err != nil {
		return err
	}
	r.mu.Lock()
	r.override = ""
	r.mu.Unlock()
	return nil
}

// Override returns the cached runtime override, if any.
func (r *Resolver) Override() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.override
}

// Resolve returns the active base URL. Precedence, highest first:
// runtime override, build-time URL (unless loopback), auto-detected
// host address, DefaultBaseURL. It always succeeds.
func (r *Resolver) Resolve() string {
	r.mu.RLock()
	override := r.override
	r.mu.RUnlock()

	if override != "" {
		return override
	}

	if r.buildURL != "" && !isLoopbackURL(r.buildURL) {
		return strings.TrimSuffix(r.buildURL, "/")
	}

	if host := r.detectHost(); host != "" {
		return fmt.Sprintf("http://%s:5000", host)
	}

	return DefaultBaseURL
}

func (r *Resolver) persist(value string) error {
	dir := filepath.Dir(r.storePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create endpoint store directory: %w", err)
	}

	store := map[string]string{}
	if data, err := os.ReadFile(r.storePath); err == nil {
		// Keep unrelated keys intact.
		_ = json.Unmarshal(data, &store)
	}
	if value == "" {
		delete(store, overrideKey)
	} else {
		store[overrideKey] = value
	}

	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal endpoint store: %w", err)
	}
	if err := os.WriteFile(r.storePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write endpoint store: %w", err)
	}
	return nil
}

// isLoopbackURL reports whether the URL points at a loopback or
// obviously local address. Build-time loopback URLs are ignored because
// they are meaningless on a device.
func isLoopbackURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" || host == "0.0.0.0" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}

// detectOutboundHost finds the machine's preferred outbound IP, the Go
// analogue of reading the dev-server connection metadata. No packets are
// sent; the UDP dial only selects a local address.
func detectOutboundHost() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return ""
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || addr.IP == nil || addr.IP.IsLoopback() {
		return ""
	}
	return addr.IP.String()
}
