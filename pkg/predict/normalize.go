package predict

import (
	"encoding/json"
	"fmt"

	clienterrors "github.com/menta2k/talisay-client/pkg/errors"
	"github.com/menta2k/talisay-client/pkg/types"
)

// Shape tags the three raw payload families the backend produces.
type Shape string

const (
	ShapeSingle   Shape = "single"
	ShapeMulti    Shape = "multi"
	ShapeBaseline Shape = "baseline"
)

// defaultItemConfidence is both the per-item fallback when a fruit
// carries no confidence and the overall fallback for an empty fruit
// collection. The backend couples the two; one constant keeps that
// coupling visible.
const defaultItemConfidence = 0.85

// DetectShape inspects a raw payload's discriminant keys. Multi-fruit
// results carry a fruit count or collection; baseline results use the
// backend's camelCase aggregate keys; everything else is single-fruit.
func DetectShape(raw json.RawMessage) Shape {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ShapeSingle
	}
	if _, ok := probe["fruit_count"]; ok {
		return ShapeMulti
	}
	if _, ok := probe["fruits"]; ok {
		return ShapeMulti
	}
	if _, ok := probe["oilYieldPercent"]; ok {
		return ShapeBaseline
	}
	if _, ok := probe["analyzedImages"]; ok {
		return ShapeBaseline
	}
	return ShapeSingle
}

// Normalize maps any raw backend payload into the canonical result.
func Normalize(raw json.RawMessage) (*types.AnalysisResult, error) {
	switch DetectShape(raw) {
	case ShapeMulti:
		return normalizeMulti(raw)
	case ShapeBaseline:
		return normalizeBaseline(raw)
	default:
		return normalizeSingle(raw)
	}
}

func normalizeSingle(raw json.RawMessage) (*types.AnalysisResult, error) {
	var payload struct {
		types.AnalysisResult
		UserMessage string `json:"user_message"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, clienterrors.NewInvalidResponseError("unexpected result payload", err)
	}

	result := payload.AnalysisResult
	// Rejected images explain themselves through user_message; keep that
	// text where consumers already look.
	if !result.IsValidFruit && result.Interpretation == "" && payload.UserMessage != "" {
		result.Interpretation = payload.UserMessage
	}
	result.Category = types.ParseColorCategory(string(result.Category))
	return &result, nil
}

type rawFruit struct {
	Confidence      *float64         `json:"confidence"`
	Category        string           `json:"category"`
	Color           string           `json:"color"`
	MaturityStage   string           `json:"maturity_stage"`
	ColorConfidence float64          `json:"color_confidence"`
	OilConfidence   float64          `json:"oil_confidence"`
	OilYieldPercent float64          `json:"oil_yield_percent"`
	YieldCategory   string           `json:"yield_category"`
	Interpretation  string           `json:"interpretation"`
	Dimensions      types.Dimensions `json:"dimensions"`
}

func normalizeMulti(raw json.RawMessage) (*types.AnalysisResult, error) {
	var payload struct {
		FruitCount        int            `json:"fruit_count"`
		Fruits            []rawFruit     `json:"fruits"`
		AverageOilYield   float64        `json:"average_oil_yield"`
		OilYieldRange     types.Range    `json:"oil_yield_range"`
		ColorDistribution map[string]int `json:"color_distribution"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, clienterrors.NewInvalidResponseError("unexpected multi-fruit payload", err)
	}

	breakdown := &types.MultiBreakdown{
		Count:             payload.FruitCount,
		AverageOilYield:   payload.AverageOilYield,
		OilYieldRange:     payload.OilYieldRange,
		ColorDistribution: payload.ColorDistribution,
	}
	if breakdown.Count == 0 {
		breakdown.Count = len(payload.Fruits)
	}

	result := &types.AnalysisResult{Breakdown: breakdown}

	if len(payload.Fruits) == 0 {
		result.OverallConfidence = defaultItemConfidence
		result.OilYieldPercent = payload.AverageOilYield
		return result, nil
	}

	dominant := 0
	best := -1.0
	sum := 0.0
	for i, fruit := range payload.Fruits {
		conf := defaultItemConfidence
		if fruit.Confidence != nil {
			conf = *fruit.Confidence
		}
		sum += conf
		// Strict comparison: the first of equally confident fruits wins.
		if conf > best {
			best = conf
			dominant = i
		}
		breakdown.Items = append(breakdown.Items, types.FruitItem{
			Confidence:      conf,
			Category:        types.ParseColorCategory(fruitColor(fruit)),
			MaturityStage:   fruit.MaturityStage,
			OilYieldPercent: fruit.OilYieldPercent,
			YieldCategory:   fruit.YieldCategory,
			Dimensions:      fruit.Dimensions,
		})
	}
	breakdown.DominantIndex = dominant

	// Mirror the dominant fruit onto the top-level fields so
	// single-fruit consumers need no branching.
	top := payload.Fruits[dominant]
	result.IsValidFruit = true
	result.Category = types.ParseColorCategory(fruitColor(top))
	result.MaturityStage = top.MaturityStage
	result.ColorConfidence = top.ColorConfidence
	result.FruitConfidence = breakdown.Items[dominant].Confidence
	result.OverallConfidence = sum / float64(len(payload.Fruits))
	result.Dimensions = top.Dimensions
	result.OilYieldPercent = top.OilYieldPercent
	result.OilConfidence = top.OilConfidence
	result.YieldCategory = top.YieldCategory
	result.Interpretation = top.Interpretation
	return result, nil
}

func fruitColor(f rawFruit) string {
	if f.Category != "" {
		return f.Category
	}
	return f.Color
}

func normalizeBaseline(raw json.RawMessage) (*types.AnalysisResult, error) {
	var payload struct {
		RepresentativeImageName string           `json:"representativeImageName"`
		TotalImages             int              `json:"totalImages"`
		AnalyzedImages          int              `json:"analyzedImages"`
		Color                   string           `json:"color"`
		OilYieldPercent         float64          `json:"oilYieldPercent"`
		ColorCategory           string           `json:"colorCategory"`
		MaturityStage           string           `json:"maturityStage"`
		Confidence              float64          `json:"confidence"`
		Dimensions              types.Dimensions `json:"dimensions"`
		YieldCategory           string           `json:"yieldCategory"`
		SeedSpotsDetectionRate  float64          `json:"seedSpotsDetectionRate"`
		ReferenceDetectionRate  float64          `json:"referenceDetectionRate"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, clienterrors.NewInvalidResponseError("unexpected baseline payload", err)
	}

	maturity := payload.MaturityStage
	if maturity == "" {
		maturity = "unknown"
	}

	return &types.AnalysisResult{
		IsValidFruit:      true,
		Category:          types.ParseColorCategory(payload.ColorCategory),
		MaturityStage:     payload.MaturityStage,
		OverallConfidence: payload.Confidence,
		Dimensions:        payload.Dimensions,
		OilYieldPercent:   payload.OilYieldPercent,
		YieldCategory:     payload.YieldCategory,
		Interpretation: fmt.Sprintf(
			"Averaged baseline from %d %s dataset images. Average oil yield: %.1f%%. Most common maturity: %s.",
			payload.AnalyzedImages, payload.Color, payload.OilYieldPercent, maturity),
		Baseline: &types.BaselineInfo{
			Color:                   payload.Color,
			TotalImages:             payload.TotalImages,
			AnalyzedImages:          payload.AnalyzedImages,
			RepresentativeImageName: payload.RepresentativeImageName,
			SeedSpotsDetectionRate:  payload.SeedSpotsDetectionRate,
			ReferenceDetectionRate:  payload.ReferenceDetectionRate,
		},
	}, nil
}
