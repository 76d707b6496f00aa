// Package talisayclient is the Go client for the Talisay oil yield
// prediction service and its companion history/storage backend.
//
// The client handles everything between a local image file and a
// normalized prediction: compressing the image under a byte budget,
// encoding it for JSON transport, resolving the active backend URL from
// layered configuration, orchestrating the HTTP calls, and normalizing
// the backend's heterogeneous response shapes into one canonical result.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//
//		talisayclient "github.com/menta2k/talisay-client"
//		"github.com/menta2k/talisay-client/pkg/predict"
//	)
//
//	func main() {
//		client, err := talisayclient.New()
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		resp, err := client.Analyze(context.Background(), "fruit.jpg", predict.AnalyzeOptions{})
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		fmt.Printf("color: %s, oil yield: %.1f%% (%s)\n",
//			resp.Result.Category, resp.Result.OilYieldPercent, resp.Result.YieldCategory)
//		fmt.Printf("analyzed in %.1fs, %d compression attempts\n",
//			resp.Timing.ElapsedSeconds, resp.Timing.CompressionAttempts)
//	}
//
// The package consists of five main components:
//
// 1. Preprocessor (pkg/preprocess): compression ladder under a byte budget
// 2. Encoder (pkg/encode): base64 transport encoding
// 3. Resolver (pkg/endpoint): layered backend URL resolution
// 4. Predictor (pkg/predict): request orchestration and normalization
// 5. Uploader (pkg/storage): authenticated history uploads
//
// Every public operation returns a tagged failure (pkg/errors) instead
// of panicking; timeouts cancel the in-flight request and surface as a
// timeout result.
package talisayclient

import (
	"context"

	"github.com/menta2k/talisay-client/internal/config"
	apiclient "github.com/menta2k/talisay-client/pkg/client"
	"github.com/menta2k/talisay-client/pkg/endpoint"
	"github.com/menta2k/talisay-client/pkg/predict"
	"github.com/menta2k/talisay-client/pkg/preprocess"
	"github.com/menta2k/talisay-client/pkg/storage"
	"github.com/menta2k/talisay-client/pkg/types"
)

// Version of the client library
const Version = "1.0.0"

// Client bundles the resolver, predictor and uploader behind one handle.
type Client struct {
	resolver  *endpoint.Resolver
	predictor apiclient.Predictor
	uploader  apiclient.Uploader
}

// New creates a Client from the environment configuration and the
// persisted endpoint override, if one was set earlier.
func New() (*Client, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, err
	}
	return NewWithConfig(cfg)
}

// NewWithConfig creates a Client from an explicit configuration.
func NewWithConfig(cfg *config.Config) (*Client, error) {
	resolver := endpoint.New(cfg.APIURL)
	if err := resolver.Load(); err != nil {
		return nil, err
	}

	predictor := predict.NewClientWithOptions(resolver, predict.Options{
		Timeout:      cfg.Timeout,
		Preprocessor: preprocess.NewWithLadder(nil, cfg.ByteBudget),
	})

	uploadBase := cfg.UploadURL
	if uploadBase == "" {
		uploadBase = resolver.Resolve()
	}

	return &Client{
		resolver:  resolver,
		predictor: predictor,
		uploader:  storage.NewClient(uploadBase),
	}, nil
}

// Analyze runs the single-fruit analyze flow on an image file.
func (c *Client) Analyze(ctx context.Context, imagePath string, opts predict.AnalyzeOptions) (*types.AnalysisResponse, error) {
	return c.predictor.Analyze(ctx, imagePath, opts)
}

// AnalyzeMulti runs the multi-fruit analyze flow on an image file.
func (c *Client) AnalyzeMulti(ctx context.Context, imagePath string, opts predict.AnalyzeOptions) (*types.AnalysisResponse, error) {
	return c.predictor.AnalyzeMulti(ctx, imagePath, opts)
}

// AnalyzeMeasurements predicts oil yield from manual measurements.
func (c *Client) AnalyzeMeasurements(ctx context.Context, req predict.MeasurementsRequest) (*types.AnalysisResponse, error) {
	return c.predictor.AnalyzeMeasurements(ctx, req)
}

// Baseline fetches the dataset aggregate for a color.
func (c *Client) Baseline(ctx context.Context, color string) (*types.AnalysisResult, error) {
	return c.predictor.Baseline(ctx, color)
}

// Health checks backend availability.
func (c *Client) Health(ctx context.Context) (*types.HealthStatus, error) {
	return c.predictor.Health(ctx)
}

// Info fetches backend metadata.
func (c *Client) Info(ctx context.Context) (map[string]any, error) {
	return c.predictor.Info(ctx)
}

// SetEndpointOverride persists a runtime backend URL that wins over all
// configured values until cleared.
func (c *Client) SetEndpointOverride(rawURL string) error {
	return c.resolver.SetOverride(rawURL)
}

// ClearEndpointOverride reverts to build-time/auto-detected resolution.
func (c *Client) ClearEndpointOverride() error {
	return c.resolver.ClearOverride()
}

// Endpoint returns the backend URL currently in effect.
func (c *Client) Endpoint() string {
	return c.resolver.Resolve()
}

// SetToken stores the bearer token for history uploads.
func (c *Client) SetToken(token string) {
	c.uploader.SetToken(token)
}

// UploadFile uploads an image to the history backend.
func (c *Client) UploadFile(ctx context.Context, path string) (*types.UploadResult, error) {
	return c.uploader.UploadFile(ctx, path)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
