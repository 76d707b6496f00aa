package preprocess

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

// createNoisyImage creates an image that compresses poorly, so the
// ladder actually has work to do.
func createNoisyImage(width, height int) image.Image {
	rng := rand.New(rand.NewSource(42))
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				uint8(rng.Intn(256)),
				uint8(rng.Intn(256)),
				uint8(rng.Intn(256)),
				255,
			})
		}
	}
	return img
}

func encodeJPEG(t *testing.T, img image.Image, quality int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestProcessWithinBudgetUntouched(t *testing.T) {
	raw := encodeJPEG(t, createNoisyImage(100, 100), 60)
	p := NewWithLadder(nil, len(raw)+1)

	result := p.Process(raw)
	if result.Fallback {
		t.Error("expected no fallback for in-budget input")
	}
	if result.Attempts != 0 {
		t.Errorf("expected 0 attempts, got %d", result.Attempts)
	}
	if !bytes.Equal(result.Data, raw) {
		t.Error("in-budget input should be returned unmodified")
	}
}

func TestProcessMeetsBudget(t *testing.T) {
	raw := encodeJPEG(t, createNoisyImage(2000, 1500), 95)
	budget := 200 * 1024
	if len(raw) <= budget {
		t.Fatalf("test image too small to exercise the ladder: %d bytes", len(raw))
	}

	p := NewWithLadder(nil, budget)
	result := p.Process(raw)

	if result.Fallback {
		t.Fatal("expected a successful compression, got fallback")
	}
	if len(result.Data) > budget {
		t.Errorf("result size %d exceeds budget %d", len(result.Data), budget)
	}
	if result.Attempts < 1 {
		t.Errorf("expected at least one attempt, got %d", result.Attempts)
	}
	if result.Width == 0 || result.Height == 0 {
		t.Error("expected result dimensions to be recorded")
	}
}

func TestProcessLadderExhaustedAcceptsLast(t *testing.T) {
	raw := encodeJPEG(t, createNoisyImage(1600, 1200), 95)
	// A one-byte budget can never be met; the final rung must still be
	// accepted.
	p := NewWithLadder(nil, 1)
	result := p.Process(raw)

	if result.Fallback {
		t.Fatal("ladder exhaustion is not a fallback")
	}
	if result.Attempts != len(DefaultLadder) {
		t.Errorf("expected %d attempts, got %d", len(DefaultLadder), result.Attempts)
	}
	if len(result.Data) <= 1 {
		t.Error("expected the final rung's output, got nothing")
	}
	if len(result.Data) >= len(raw) {
		t.Errorf("final rung should still shrink the input: %d -> %d", len(raw), len(result.Data))
	}
	if result.Quality != DefaultLadder[len(DefaultLadder)-1].Quality {
		t.Errorf("expected final rung quality %d, got %d",
			DefaultLadder[len(DefaultLadder)-1].Quality, result.Quality)
	}
}

func TestProcessUndecodableFallsBack(t *testing.T) {
	raw := []byte("definitely not an image, but longer than the budget")
	p := NewWithLadder(nil, 4)

	result := p.Process(raw)
	if !result.Fallback {
		t.Error("expected fallback for undecodable input")
	}
	if !bytes.Equal(result.Data, raw) {
		t.Error("fallback must return the original bytes unmodified")
	}
}

func TestProcessFileMissing(t *testing.T) {
	p := New()
	result := p.ProcessFile(filepath.Join(t.TempDir(), "nope.jpg"))
	if !result.Fallback {
		t.Error("expected fallback for a missing file")
	}
	if result.Data != nil {
		t.Error("missing file has no bytes to fall back to")
	}
}

func TestProcessFile(t *testing.T) {
	raw := encodeJPEG(t, createNoisyImage(1200, 900), 95)
	path := filepath.Join(t.TempDir(), "fruit.jpg")
	if err := os.WriteFile(path, raw, 0644); err != nil {
		t.Fatal(err)
	}

	budget := 150 * 1024
	p := NewWithLadder(nil, budget)
	result := p.ProcessFile(path)

	if result.Fallback {
		t.Fatal("expected successful processing")
	}
	if len(result.Data) > budget {
		t.Errorf("result size %d exceeds budget %d", len(result.Data), budget)
	}
}

func TestNewWithLadderDefaults(t *testing.T) {
	p := NewWithLadder(nil, 0)
	if p.Budget() != DefaultByteBudget {
		t.Errorf("expected default budget %d, got %d", DefaultByteBudget, p.Budget())
	}
	if len(p.ladder) != len(DefaultLadder) {
		t.Errorf("expected default ladder, got %d rungs", len(p.ladder))
	}
}

func TestCustomLadderOrder(t *testing.T) {
	raw := encodeJPEG(t, createNoisyImage(1600, 1200), 95)
	ladder := []Attempt{
		{Width: 1200, Quality: 85},
		{Width: 300, Quality: 40},
	}
	p := NewWithLadder(ladder, 60*1024)

	result := p.Process(raw)
	if result.Fallback {
		t.Fatal("expected successful compression")
	}
	if result.Width > 300 {
		t.Errorf("expected the second rung's width, got %d", result.Width)
	}
	if result.Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", result.Attempts)
	}
}

func BenchmarkProcess(b *testing.B) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, createNoisyImage(1600, 1200), &jpeg.Options{Quality: 95}); err != nil {
		b.Fatal(err)
	}
	raw := buf.Bytes()
	p := New()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Process(raw)
	}
}
