package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"

	"kyc-verification/internal/core/domain"
)

// flat image at the given gray level.
func flatImage(w, h int, level uint8) image.Image {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = level
	}
	return img
}

// checkerboard has maximal 4-neighbor Laplacian response everywhere.
func checkerboard(w, h int) image.Image {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

func TestAnalyzeFlatFrameIsBlur(t *testing.T) {
	result := NewAnalyzer().Analyze(flatImage(64, 64, 128))
	if result.Acceptable {
		t.Fatal("flat frame must not be acceptable")
	}
	if result.Issue != domain.IssueBlur {
		t.Fatalf("issue = %q, want blur", result.Issue)
	}
	if result.Sharpness != 0 {
		t.Fatalf("sharpness = %v, want 0 for flat frame", result.Sharpness)
	}
}

func TestAnalyzeSharpDarkFrame(t *testing.T) {
	// Checkerboard of 0/255 averages ~127.5 brightness, so darkness has to
	// come from a mostly-black sharp frame.
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if (x+y)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 90})
			}
		}
	}
	result := NewAnalyzer().Analyze(img)
	if result.Issue != domain.IssueDark {
		t.Fatalf("issue = %q, want dark (sharpness=%v brightness=%v)", result.Issue, result.Sharpness, result.Brightness)
	}
	if result.Acceptable {
		t.Fatal("dark frame must not be acceptable")
	}
}

func TestAnalyzeSharpBrightFrame(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			level := uint8(255)
			if (x+y)%2 == 0 {
				level = 170
			}
			img.SetGray(x, y, color.Gray{Y: level})
		}
	}
	result := NewAnalyzer().Analyze(img)
	if result.Issue != domain.IssueBright {
		t.Fatalf("issue = %q, want bright (sharpness=%v brightness=%v)", result.Issue, result.Sharpness, result.Brightness)
	}
}

func TestAnalyzeAcceptableFrame(t *testing.T) {
	result := NewAnalyzer().Analyze(checkerboard(64, 64))
	if !result.Acceptable {
		t.Fatalf("checkerboard should be acceptable, got issue=%q brightness=%v sharpness=%v",
			result.Issue, result.Brightness, result.Sharpness)
	}
	if result.Issue != domain.IssueNone {
		t.Fatalf("issue = %q, want none", result.Issue)
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	analyzer := NewAnalyzer()
	img := checkerboard(700, 500) // exercises the downscale path
	first := analyzer.Analyze(img)
	second := analyzer.Analyze(img)
	if first != second {
		t.Fatalf("analysis not deterministic: %+v vs %+v", first, second)
	}
}

func TestAnalyzeNilImageDegrades(t *testing.T) {
	result := NewAnalyzer().Analyze(nil)
	if result.Acceptable {
		t.Fatal("nil frame must not be acceptable")
	}
	if result.Sharpness != 0 || result.Brightness != 0 {
		t.Fatalf("scores = %v/%v, want zeros", result.Sharpness, result.Brightness)
	}
}

func TestDecodeBase64Image(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, flatImage(8, 8, 200)); err != nil {
		t.Fatal(err)
	}
	encoded := base64.StdEncoding.EncodeToString(buf.Bytes())

	for _, input := range []string{encoded, "data:image/png;base64," + encoded} {
		img, raw, err := DecodeBase64Image(input)
		if err != nil {
			t.Fatalf("DecodeBase64Image: %v", err)
		}
		if img == nil || len(raw) == 0 {
			t.Fatal("expected decoded image and raw bytes")
		}
	}

	if _, _, err := DecodeBase64Image(""); err == nil {
		t.Fatal("expected error for empty payload")
	}
	if _, _, err := DecodeBase64Image("%%%"); err == nil {
		t.Fatal("expected error for invalid base64")
	}
}
