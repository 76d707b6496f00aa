package types

import "strings"

// ColorCategory is the maturity color class assigned by the backend.
type ColorCategory string

const (
	ColorGreen  ColorCategory = "GREEN"
	ColorYellow ColorCategory = "YELLOW"
	ColorBrown  ColorCategory = "BROWN"
)

// ParseColorCategory normalizes a backend color string to a category.
// Unknown values are passed through upper-cased so nothing is lost.
func ParseColorCategory(s string) ColorCategory {
	return ColorCategory(strings.ToUpper(strings.TrimSpace(s)))
}

// Dimensions holds fruit measurements in the units the backend uses.
type Dimensions struct {
	LengthCm          float64 `json:"length_cm,omitempty"`
	WidthCm           float64 `json:"width_cm,omitempty"`
	KernelMassG       float64 `json:"kernel_mass_g,omitempty"`
	WholeFruitWeightG float64 `json:"whole_fruit_weight_g,omitempty"`
}

// Range is a min/max pair, used for multi-fruit oil yield spreads.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// FruitItem is one fruit inside a multi-fruit analysis.
type FruitItem struct {
	Confidence      float64       `json:"confidence"`
	Category        ColorCategory `json:"category"`
	MaturityStage   string        `json:"maturity_stage,omitempty"`
	OilYieldPercent float64       `json:"oil_yield_percent"`
	YieldCategory   string        `json:"yield_category,omitempty"`
	Dimensions      Dimensions    `json:"dimensions"`
}

// MultiBreakdown is the per-item detail of a multi-fruit result. The
// dominant item's fields are mirrored onto the parent AnalysisResult so
// single-fruit consumers need no branching.
type MultiBreakdown struct {
	Count             int            `json:"fruit_count"`
	Items             []FruitItem    `json:"fruits"`
	DominantIndex     int            `json:"dominant_index"`
	AverageOilYield   float64        `json:"average_oil_yield"`
	OilYieldRange     Range          `json:"oil_yield_range"`
	ColorDistribution map[string]int `json:"color_distribution,omitempty"`
}

// BaselineInfo carries the dataset-aggregate fields that only baseline
// results have.
type BaselineInfo struct {
	Color                   string  `json:"color"`
	TotalImages             int     `json:"total_images"`
	AnalyzedImages          int     `json:"analyzed_images"`
	RepresentativeImageName string  `json:"representative_image_name,omitempty"`
	SeedSpotsDetectionRate  float64 `json:"seed_spots_detection_rate,omitempty"`
	ReferenceDetectionRate  float64 `json:"reference_detection_rate,omitempty"`
}

// AnalysisResult is the canonical result shape. Every source — single
// fruit, multi fruit, dataset baseline — is normalized into this struct.
// The JSON tags match the backend's single-fruit keys, so normalizing an
// already-canonical payload through the single branch is a no-op.
type AnalysisResult struct {
	IsValidFruit      bool          `json:"is_talisay"`
	Category          ColorCategory `json:"category"`
	MaturityStage     string        `json:"maturity_stage,omitempty"`
	ColorConfidence   float64       `json:"color_confidence"`
	FruitConfidence   float64       `json:"fruit_confidence"`
	OverallConfidence float64       `json:"overall_confidence"`
	Dimensions        Dimensions    `json:"dimensions"`
	OilYieldPercent   float64       `json:"oil_yield_percent"`
	OilConfidence     float64       `json:"oil_confidence"`
	YieldCategory     string        `json:"yield_category,omitempty"`
	Interpretation    string        `json:"interpretation,omitempty"`
	HasSpots          bool          `json:"has_spots"`
	SpotCoverage      float64       `json:"spot_coverage_percent"`
	ReferenceDetected bool          `json:"reference_detected"`

	// Populated only for multi-fruit and baseline sources.
	Breakdown *MultiBreakdown `json:"breakdown,omitempty"`
	Baseline  *BaselineInfo   `json:"baseline,omitempty"`
}

// Timing is the request metadata attached to a completed analyze call.
type Timing struct {
	ElapsedSeconds      float64 `json:"elapsed_seconds"`
	EncodedBytes        int     `json:"encoded_bytes"`
	CompressionAttempts int     `json:"compression_attempts"`
}

// AnalysisResponse pairs the canonical result with timing metadata.
type AnalysisResponse struct {
	Result AnalysisResult `json:"result"`
	Timing Timing         `json:"timing"`
}

// HealthStatus is the backend health report from GET /.
type HealthStatus struct {
	Status  string          `json:"status"`
	Service string          `json:"service,omitempty"`
	Version string          `json:"version,omitempty"`
	Models  map[string]bool `json:"models,omitempty"`
}

// Healthy reports whether the backend is fully operational.
func (h *HealthStatus) Healthy() bool {
	return h != nil && h.Status == "healthy"
}

// UploadResult is the storage backend's response to an image upload.
type UploadResult struct {
	ImageURL string `json:"imageUrl"`
	PublicID string `json:"publicId"`
}
