// Package storage uploads analyzed images to the history/storage
// backend, a separate service from the prediction API.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	clienterrors "github.com/menta2k/talisay-client/pkg/errors"
	"github.com/menta2k/talisay-client/pkg/types"
)

const uploadPath = "/api/history/upload/image"

// DefaultTimeout bounds one upload attempt.
const DefaultTimeout = 60 * time.Second

// Client uploads images with bearer authentication.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration

	mu    sync.RWMutex
	token string
}

// NewClient creates an upload client for the given API base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
	}
}

// SetHTTPClient replaces the underlying HTTP client, mainly for tests.
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// SetToken stores the bearer token used on subsequent uploads.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// ClearToken forgets the stored token.
func (c *Client) ClearToken() {
	c.SetToken("")
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// UploadFile uploads an image file. Without a token it fails immediately
// with an unauthenticated result; no network call is attempted.
func (c *Client) UploadFile(ctx context.Context, path string) (result *types.UploadResult, err error) {
	defer recoverUpload(&err)

	data, readErr := os.ReadFile(path)
	if readErr != nil {
		return nil, clienterrors.NewEncodingError(
			fmt.Sprintf("cannot read image %s", path), readErr)
	}
	return c.Upload(ctx, filepath.Base(path), data)
}

// Upload uploads raw image bytes under the given filename.
func (c *Client) Upload(ctx context.Context, filename string, data []byte) (result *types.UploadResult, err error) {
	defer recoverUpload(&err)

	token := c.Token()
	if token == "" {
		return nil, clienterrors.NewUnauthenticatedError("no auth token: sign in before uploading")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return nil, clienterrors.NewInternalError("failed to build multipart payload", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, clienterrors.NewInternalError("failed to build multipart payload", err)
	}
	if err := writer.Close(); err != nil {
		return nil, clienterrors.NewInternalError("failed to build multipart payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+uploadPath, &body)
	if err != nil {
		return nil, clienterrors.NewInternalError("failed to create request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("ngrok-skip-browser-warning", "true")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, clienterrors.NewTimeoutError(
				fmt.Sprintf("upload timed out after %s", c.timeout), err)
		}
		return nil, clienterrors.NewNetworkError("storage backend unreachable", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, clienterrors.NewNetworkError("failed to read upload response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var detail struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.Unmarshal(respBody, &detail) == nil {
			if detail.Error != "" {
				return nil, clienterrors.NewServerError(detail.Error, nil)
			}
			if detail.Message != "" {
				return nil, clienterrors.NewServerError(detail.Message, nil)
			}
		}
		return nil, clienterrors.NewServerError(
			fmt.Sprintf("upload failed with status %d", resp.StatusCode), nil)
	}

	var uploaded types.UploadResult
	if err := json.Unmarshal(respBody, &uploaded); err != nil {
		return nil, clienterrors.NewInvalidResponseError("upload response is not JSON", err)
	}
	return &uploaded, nil
}

func recoverUpload(err *error) {
	if r := recover(); r != nil {
		*err = clienterrors.NewInternalError(fmt.Sprintf("unexpected failure: %v", r), nil)
	}
}
