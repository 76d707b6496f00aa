// Package client defines the narrow interfaces the facade consumes, so
// callers can substitute fakes for the prediction and storage backends.
package client

import (
	"context"

	"github.com/menta2k/talisay-client/pkg/predict"
	"github.com/menta2k/talisay-client/pkg/types"
)

// Predictor is the prediction backend surface.
type Predictor interface {
	Analyze(ctx context.Context, imagePath string, opts predict.AnalyzeOptions) (*types.AnalysisResponse, error)
	AnalyzeMulti(ctx context.Context, imagePath string, opts predict.AnalyzeOptions) (*types.AnalysisResponse, error)
	AnalyzeMeasurements(ctx context.Context, req predict.MeasurementsRequest) (*types.AnalysisResponse, error)
	Baseline(ctx context.Context, color string) (*types.AnalysisResult, error)
	Health(ctx context.Context) (*types.HealthStatus, error)
	Info(ctx context.Context) (map[string]any, error)
}

// Uploader is the history/storage backend surface.
type Uploader interface {
	Upload(ctx context.Context, filename string, data []byte) (*types.UploadResult, error)
	UploadFile(ctx context.Context, path string) (*types.UploadResult, error)
	SetToken(token string)
	ClearToken()
}
