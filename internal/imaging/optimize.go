package imaging

import (
	"bytes"
	"image"
	"image/jpeg"
)

const uploadMaxDim = 1024

// OptimizeForUpload downscales an encoded image so its longest edge is at
// most 1024px and re-encodes it as JPEG, keeping vision-service payloads
// small. Any failure returns the original bytes unchanged.
func OptimizeForUpload(raw []byte) []byte {
	img, err := DecodeImage(raw)
	if err != nil {
		return raw
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= uploadMaxDim && h <= uploadMaxDim {
		return reencodeJPEG(img, raw)
	}

	scale := float64(uploadMaxDim) / float64(w)
	if h > w {
		scale = float64(uploadMaxDim) / float64(h)
	}
	dstW, dstH := int(float64(w)*scale), int(float64(h)*scale)
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	for y := 0; y < dstH; y++ {
		srcY := bounds.Min.Y + y*h/dstH
		for x := 0; x < dstW; x++ {
			srcX := bounds.Min.X + x*w/dstW
			dst.Set(x, y, img.At(srcX, srcY))
		}
	}
	return reencodeJPEG(dst, raw)
}

func reencodeJPEG(img image.Image, fallback []byte) []byte {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return fallback
	}
	return buf.Bytes()
}
