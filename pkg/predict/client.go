// Package predict drives the analyze flow against the Talisay oil yield
// prediction backend: preprocess, encode, POST, normalize. One logical
// attempt per call; the caller decides whether to re-invoke on failure.
package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/menta2k/talisay-client/pkg/encode"
	clienterrors "github.com/menta2k/talisay-client/pkg/errors"
	"github.com/menta2k/talisay-client/pkg/preprocess"
	"github.com/menta2k/talisay-client/pkg/progress"
	"github.com/menta2k/talisay-client/pkg/types"
)

// DefaultTimeout is the hard per-request deadline. When it elapses the
// in-flight request is cancelled and the call fails with a timeout
// result.
const DefaultTimeout = 90 * time.Second

const (
	pathPredictImage        = "/api/predict/image"
	pathPredictMulti        = "/api/predict/multi"
	pathPredictMeasurements = "/api/predict/measurements"
	pathBaselineAverage     = "/api/existing-dataset/average"
	pathInfo                = "/api/info"
)

// Resolver supplies the active backend base URL per request.
type Resolver interface {
	Resolve() string
}

// StaticResolver is a Resolver pinned to one URL.
type StaticResolver string

// Resolve returns the pinned URL.
func (s StaticResolver) Resolve() string {
	return string(s)
}

// Options configures a Client. Zero values select the defaults.
type Options struct {
	Timeout      time.Duration
	HTTPClient   *http.Client
	Preprocessor *preprocess.Preprocessor
}

// Client is the request orchestrator for the prediction backend.
type Client struct {
	resolver   Resolver
	httpClient *http.Client
	timeout    time.Duration
	pre        *preprocess.Preprocessor
}

// NewClient creates a Client with default options.
func NewClient(resolver Resolver) *Client {
	return NewClientWithOptions(resolver, Options{})
}

// NewClientWithOptions creates a Client with explicit options.
func NewClientWithOptions(resolver Resolver, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Preprocessor == nil {
		opts.Preprocessor = preprocess.New()
	}
	return &Client{
		resolver:   resolver,
		httpClient: opts.HTTPClient,
		timeout:    opts.Timeout,
		pre:        opts.Preprocessor,
	}
}

// AnalyzeOptions configures one analyze call.
type AnalyzeOptions struct {
	// Dimensions are user-measured values forwarded to the backend so
	// it can skip its own estimation.
	Dimensions *types.Dimensions
	// Reporter receives per-stage progress events. Nil means silent.
	Reporter progress.Reporter
}

// Analyze runs the full single-fruit flow on an image file: compress
// under the byte budget, base64-encode, POST to the analyze path, and
// normalize the response.
func (c *Client) Analyze(ctx context.Context, imagePath string, opts AnalyzeOptions) (resp *types.AnalysisResponse, err error) {
	defer recoverToFailure(&err)
	return c.analyzeImage(ctx, imagePath, pathPredictImage, opts)
}

// AnalyzeMulti runs the multi-fruit flow. The backend detects every
// fruit in the frame; the normalizer mirrors the dominant one onto the
// top-level fields.
func (c *Client) AnalyzeMulti(ctx context.Context, imagePath string, opts AnalyzeOptions) (resp *types.AnalysisResponse, err error) {
	defer recoverToFailure(&err)
	return c.analyzeImage(ctx, imagePath, pathPredictMulti, opts)
}

func (c *Client) analyzeImage(ctx context.Context, imagePath, path string, opts AnalyzeOptions) (*types.AnalysisResponse, error) {
	reporter := opts.Reporter
	if reporter == nil {
		reporter = progress.Nop
	}
	start := time.Now()

	// Step 1: best-effort compression. Never aborts the flow.
	reporter.Report(progress.Event{Stage: progress.StagePreprocess, Message: "compressing image"})
	pr := c.pre.ProcessFile(imagePath)

	// Step 2: encoding. An unreadable resource aborts here.
	reporter.Report(progress.Event{Stage: progress.StageEncode, Message: "encoding image"})
	var imgB64 string
	if pr.Data != nil {
		imgB64 = encode.Bytes(pr.Data)
	} else {
		var err error
		imgB64, err = encode.File(imagePath)
		if err != nil {
			return nil, err
		}
	}

	payload := imageRequest{Image: imgB64, Dimensions: opts.Dimensions}

	reporter.Report(progress.Event{Stage: progress.StageRequest, Message: "uploading to prediction backend"})
	raw, err := c.postEnvelope(ctx, path, payload)
	if err != nil {
		return nil, err
	}

	reporter.Report(progress.Event{Stage: progress.StageParse, Message: "normalizing result"})
	result, err := Normalize(raw)
	if err != nil {
		return nil, err
	}

	reporter.Report(progress.Event{Stage: progress.StageDone, Message: "analysis complete"})
	return &types.AnalysisResponse{
		Result: *result,
		Timing: types.Timing{
			ElapsedSeconds:      time.Since(start).Seconds(),
			EncodedBytes:        len(imgB64),
			CompressionAttempts: pr.Attempts,
		},
	}, nil
}

// MeasurementsRequest is the payload of a measurement-only prediction.
type MeasurementsRequest struct {
	Color             string   `json:"color"`
	LengthCm          float64  `json:"length_cm"`
	WidthCm           float64  `json:"width_cm"`
	KernelMassG       *float64 `json:"kernel_mass_g,omitempty"`
	WholeFruitWeightG *float64 `json:"whole_fruit_weight_g,omitempty"`
}

// AnalyzeMeasurements predicts oil yield from manual measurements only,
// skipping the image pipeline entirely.
func (c *Client) AnalyzeMeasurements(ctx context.Context, req MeasurementsRequest) (resp *types.AnalysisResponse, err error) {
	defer recoverToFailure(&err)

	req.Color = strings.ToLower(strings.TrimSpace(req.Color))
	switch req.Color {
	case "green", "yellow", "brown":
	default:
		return nil, clienterrors.Newf(clienterrors.KindApplication,
			"invalid color %q: must be green, yellow or brown", req.Color)
	}
	if req.LengthCm <= 0 || req.WidthCm <= 0 {
		return nil, clienterrors.Newf(clienterrors.KindApplication,
			"length_cm and width_cm are required")
	}

	start := time.Now()
	raw, err := c.postEnvelope(ctx, pathPredictMeasurements, req)
	if err != nil {
		return nil, err
	}
	result, err := Normalize(raw)
	if err != nil {
		return nil, err
	}
	return &types.AnalysisResponse{
		Result: *result,
		Timing: types.Timing{ElapsedSeconds: time.Since(start).Seconds()},
	}, nil
}

// Baseline fetches the precomputed dataset aggregate for a color and
// normalizes it into the canonical result shape.
func (c *Client) Baseline(ctx context.Context, color string) (result *types.AnalysisResult, err error) {
	defer recoverToFailure(&err)

	color = strings.ToLower(strings.TrimSpace(color))
	query := url.Values{"color": []string{color}}
	body, status, err := c.do(ctx, http.MethodGet, pathBaselineAverage+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, serverFailure(status, body)
	}
	// Baseline responses are flat, not wrapped in a result envelope.
	return Normalize(body)
}

// Health checks the backend root endpoint. A degraded backend surfaces
// as a server failure carrying the backend's own error detail.
func (c *Client) Health(ctx context.Context) (health *types.HealthStatus, err error) {
	defer recoverToFailure(&err)

	body, status, err := c.do(ctx, http.MethodGet, "/", nil)
	if err != nil {
		return nil, err
	}

	var hs types.HealthStatus
	if jsonErr := json.Unmarshal(body, &hs); jsonErr != nil {
		return nil, clienterrors.NewInvalidResponseError("health response is not JSON", jsonErr)
	}
	if status < 200 || status >= 300 {
		var detail struct {
			Error   string `json:"error"`
			Details string `json:"details"`
		}
		_ = json.Unmarshal(body, &detail)
		msg := detail.Error
		if detail.Details != "" {
			msg = fmt.Sprintf("%s: %s", detail.Error, detail.Details)
		}
		if msg == "" {
			msg = fmt.Sprintf("backend unhealthy (status %d)", status)
		}
		return nil, clienterrors.NewServerError(msg, nil)
	}
	return &hs, nil
}

// Info fetches the backend's informational metadata.
func (c *Client) Info(ctx context.Context) (info map[string]any, err error) {
	defer recoverToFailure(&err)

	body, status, err := c.do(ctx, http.MethodGet, pathInfo, nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, serverFailure(status, body)
	}
	if jsonErr := json.Unmarshal(body, &info); jsonErr != nil {
		return nil, clienterrors.NewInvalidResponseError("info response is not JSON", jsonErr)
	}
	return info, nil
}

type imageRequest struct {
	Image      string            `json:"image"`
	Dimensions *types.Dimensions `json:"dimensions,omitempty"`
}

// envelope is the backend's standard response wrapper for POST
// prediction endpoints.
type envelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// postEnvelope posts a JSON payload and unwraps the success/result
// envelope, mapping HTTP and payload-level failures to tagged errors.
func (c *Client) postEnvelope(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	body, status, err := c.do(ctx, http.MethodPost, path, payload)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, serverFailure(status, body)
	}

	var env envelope
	if jsonErr := json.Unmarshal(body, &env); jsonErr != nil {
		return nil, clienterrors.NewInvalidResponseError("response is not JSON", jsonErr)
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		if msg == "" {
			msg = "analysis failed"
		}
		return nil, clienterrors.NewApplicationError(msg)
	}
	if len(env.Result) == 0 {
		return nil, clienterrors.NewInvalidResponseError("response has no result", nil)
	}
	return env.Result, nil
}

// do issues one HTTP request against the resolved base URL with the
// fixed headers every call carries. It enforces the client timeout when
// the caller's context has no deadline of its own.
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, int, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, clienterrors.NewInternalError("failed to marshal request", err)
		}
		reqBody = bytes.NewReader(data)
	}

	base := strings.TrimSuffix(c.resolver.Resolve(), "/")
	req, err := http.NewRequestWithContext(ctx, method, base+path, reqBody)
	if err != nil {
		return nil, 0, clienterrors.NewInternalError("failed to create request", err)
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	// Tells an ngrok tunnel not to inject its interstitial page; other
	// servers ignore it.
	req.Header.Set("ngrok-skip-browser-warning", "true")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, 0, clienterrors.NewTimeoutError(
				fmt.Sprintf("request timed out after %s", c.timeout), err)
		}
		return nil, 0, clienterrors.NewNetworkError("backend unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, 0, clienterrors.NewTimeoutError(
				fmt.Sprintf("request timed out after %s", c.timeout), err)
		}
		return nil, 0, clienterrors.NewNetworkError("failed to read response", err)
	}
	return body, resp.StatusCode, nil
}

// serverFailure maps a non-2xx response to a server error, preferring
// the backend's own message when the body parses as JSON.
func serverFailure(status int, body []byte) error {
	var detail struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &detail); err == nil {
		if detail.Error != "" {
			return clienterrors.NewServerError(detail.Error, nil)
		}
		if detail.Message != "" {
			return clienterrors.NewServerError(detail.Message, nil)
		}
	}
	return clienterrors.NewServerError(fmt.Sprintf("server returned status %d", status), nil)
}

// recoverToFailure converts a panic at the public boundary into a tagged
// internal failure so no call ever raises.
func recoverToFailure(err *error) {
	if r := recover(); r != nil {
		*err = clienterrors.NewInternalError(fmt.Sprintf("unexpected failure: %v", r), nil)
	}
}
