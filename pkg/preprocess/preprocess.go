// Package preprocess shrinks a local image under a byte budget before it
// is encoded and shipped to the prediction backend.
package preprocess

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"os"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Attempt is one rung of the compression ladder: resize the longest side
// to Width, re-encode as JPEG at Quality.
type Attempt struct {
	Width   int
	Quality int
}

// DefaultLadder is tried in order until the encoded size fits the budget.
// The last rung is accepted regardless of the resulting size.
var DefaultLadder = []Attempt{
	{Width: 1280, Quality: 80},
	{Width: 1024, Quality: 75},
	{Width: 800, Quality: 70},
	{Width: 640, Quality: 60},
	{Width: 480, Quality: 50},
}

// DefaultByteBudget keeps the base64 payload comfortably under the
// backend's 16MB request cap even on slow mobile uplinks.
const DefaultByteBudget = 900 * 1024

// Result is the best-effort output of a preprocessing run.
type Result struct {
	Data     []byte
	Width    int
	Height   int
	Quality  int
	Attempts int
	// Fallback is set when every ladder rung failed and the original
	// bytes were returned unmodified.
	Fallback bool
}

// Preprocessor compresses images down a fixed ladder.
type Preprocessor struct {
	ladder []Attempt
	budget int
}

// New creates a Preprocessor with the default ladder and byte budget.
func New() *Preprocessor {
	return &Preprocessor{ladder: DefaultLadder, budget: DefaultByteBudget}
}

// NewWithLadder creates a Preprocessor with a custom ladder and budget.
// An empty ladder or non-positive budget falls back to the defaults.
func NewWithLadder(ladder []Attempt, budget int) *Preprocessor {
	if len(ladder) == 0 {
		ladder = DefaultLadder
	}
	if budget <= 0 {
		budget = DefaultByteBudget
	}
	return &Preprocessor{ladder: ladder, budget: budget}
}

// Budget returns the byte budget this preprocessor targets.
func (p *Preprocessor) Budget() int {
	return p.budget
}

// ProcessFile reads an image file and compresses it under the budget.
// It never returns an error: if the file cannot be decoded or every
// ladder rung fails, the original bytes are returned with Fallback set.
func (p *Preprocessor) ProcessFile(path string) Result {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Result{Fallback: true}
	}
	return p.Process(raw)
}

// Process compresses raw image bytes under the budget. If the input is
// already within budget it is returned untouched with zero attempts.
func (p *Preprocessor) Process(raw []byte) Result {
	if len(raw) <= p.budget {
		return Result{Data: raw, Attempts: 0}
	}

	img, err := decodeBytes(raw)
	if err != nil {
		// Undecodable input degrades to the original bytes.
		return Result{Data: raw, Fallback: true}
	}

	var last Result
	for i, attempt := range p.ladder {
		out, err := reencode(img, attempt)
		if err != nil {
			if i == len(p.ladder)-1 {
				return Result{Data: raw, Attempts: i + 1, Fallback: true}
			}
			continue
		}
		out.Attempts = i + 1
		last = out
		if len(out.Data) <= p.budget {
			return out
		}
	}
	if last.Data == nil {
		return Result{Data: raw, Attempts: len(p.ladder), Fallback: true}
	}
	// Ladder exhausted: the final rung's output is accepted as-is.
	return last
}

// decodeBytes decodes any supported input format, falling back to the
// WebP decoder for files the standard registry misses.
func decodeBytes(data []byte) (image.Image, error) {
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	return nil, fmt.Errorf("image: unknown or unsupported format")
}

func reencode(img image.Image, attempt Attempt) (Result, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	resized := img
	if attempt.Width > 0 && (w > attempt.Width || h > attempt.Width) {
		if w >= h {
			resized = imaging.Resize(img, attempt.Width, 0, imaging.Lanczos)
		} else {
			resized = imaging.Resize(img, 0, attempt.Width, imaging.Lanczos)
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: attempt.Quality}); err != nil {
		return Result{}, err
	}
	rb := resized.Bounds()
	return Result{
		Data:    buf.Bytes(),
		Width:   rb.Dx(),
		Height:  rb.Dy(),
		Quality: attempt.Quality,
	}, nil
}
