// Package imaging implements the capture quality gate: blur and exposure
// scoring over a single still frame.
package imaging

import (
	"encoding/base64"
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"kyc-verification/internal/core/domain"
)

// Analysis thresholds are tuned for frames downscaled to maxAnalysisDim.
const (
	maxAnalysisDim     = 640
	sharpnessThreshold = 35.0
	darkThreshold      = 60.0
	brightThreshold    = 200.0
)

type Analyzer struct{}

func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze scores one frame. It never fails: an undecodable or empty frame
// degrades to a not-acceptable result with zero scores.
func (a *Analyzer) Analyze(img image.Image) domain.QualityResult {
	luma, width, height := lumaPlane(img)
	if width < 3 || height < 3 {
		return classify(0, 0)
	}

	var brightnessSum float64
	for _, v := range luma {
		brightnessSum += v
	}
	brightness := brightnessSum / float64(len(luma))

	// Sum of squared 4-neighbor discrete Laplacian responses over the
	// interior, divided by pixel count. Higher is sharper.
	var laplacianSum float64
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			center := luma[y*width+x]
			response := 4*center -
				luma[(y-1)*width+x] -
				luma[(y+1)*width+x] -
				luma[y*width+x-1] -
				luma[y*width+x+1]
			laplacianSum += response * response
		}
	}
	sharpness := laplacianSum / float64(width*height)

	return classify(sharpness, brightness)
}

// First match wins: blur, then dark, then bright.
func classify(sharpness, brightness float64) domain.QualityResult {
	issue := domain.IssueNone
	switch {
	case sharpness < sharpnessThreshold:
		issue = domain.IssueBlur
	case brightness < darkThreshold:
		issue = domain.IssueDark
	case brightness > brightThreshold:
		issue = domain.IssueBright
	}
	return domain.QualityResult{
		Acceptable: issue == domain.IssueNone,
		Sharpness:  sharpness,
		Brightness: brightness,
		Issue:      issue,
	}
}

// lumaPlane converts the frame to a downscaled grayscale plane using the
// 0.299/0.587/0.114 luma weights. Downscaling is nearest-sample and purely
// for throughput; scores are computed at the reduced scale.
func lumaPlane(img image.Image) ([]float64, int, int) {
	if img == nil {
		return nil, 0, 0
	}
	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	if srcW == 0 || srcH == 0 {
		return nil, 0, 0
	}

	scale := 1.0
	if srcW > maxAnalysisDim || srcH > maxAnalysisDim {
		if srcW > srcH {
			scale = float64(maxAnalysisDim) / float64(srcW)
		} else {
			scale = float64(maxAnalysisDim) / float64(srcH)
		}
	}
	width := int(float64(srcW) * scale)
	height := int(float64(srcH) * scale)
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}

	luma := make([]float64, width*height)
	for y := 0; y < height; y++ {
		srcY := bounds.Min.Y + y*srcH/height
		for x := 0; x < width; x++ {
			srcX := bounds.Min.X + x*srcW/width
			r, g, b, _ := img.At(srcX, srcY).RGBA()
			// RGBA returns 16-bit channels.
			luma[y*width+x] = 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
		}
	}
	return luma, width, height
}

// DecodeBase64Image accepts a raw base64 string or a data URL and returns
// the decoded image together with the original encoded bytes.
func DecodeBase64Image(encoded string) (image.Image, []byte, error) {
	payload := encoded
	if idx := strings.Index(payload, ","); idx >= 0 && strings.HasPrefix(payload, "data:") {
		payload = payload[idx+1:]
	}
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, nil, errors.New("empty image payload")
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, nil, errors.New("invalid base64 image payload")
	}
	img, _, err := image.Decode(strings.NewReader(string(raw)))
	if err != nil {
		return nil, raw, errors.New("unsupported image format")
	}
	return img, raw, nil
}

// DecodeImage decodes already-raw encoded bytes.
func DecodeImage(raw []byte) (image.Image, error) {
	img, _, err := image.Decode(strings.NewReader(string(raw)))
	if err != nil {
		return nil, errors.New("unsupported image format")
	}
	return img, nil
}
