package heuristics

import (
	"bytes"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/abelzeko/ecms-bot/internal/entities"
)

const (
	// SampleSize is the edge of the square grid every image is resampled to
	SampleSize = 200

	// greenThreshold is the minimum green channel value of a green pixel
	greenThreshold = 90

	// biodegradableRatio is the green proportion above which waste is biodegradable
	biodegradableRatio = 0.10
)

const (
	ActionCompost = "Compost or bury; consider composting facility."
	ActionRecycle = "Recycle where possible; if contaminated, safe disposal."
)

// WasteResult is the outcome of the image color heuristic.
// Score is the raw green pixel proportion, not a calibrated confidence.
type WasteResult struct {
	Label             entities.WasteClass
	Score             float64
	RecommendedAction string
}

// Evaluation converts the result to the shared evaluator shape
func (r WasteResult) Evaluation() Evaluation {
	return Evaluation{
		Kind:           entities.KindWaste,
		Label:          string(r.Label),
		Score:          r.Score,
		Recommendation: r.RecommendedAction,
	}
}

// DecodeImage decodes PNG, JPEG, GIF, BMP or WebP bytes
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return img, nil
}

// ClassifyWasteBytes decodes data and classifies the resulting image
func ClassifyWasteBytes(data []byte) (WasteResult, error) {
	img, err := DecodeImage(data)
	if err != nil {
		return WasteResult{}, err
	}
	return ClassifyWasteImage(img), nil
}

// ClassifyWasteImage guesses whether the pictured waste is organic from the
// share of green pixels on a fixed 200x200 grid
func ClassifyWasteImage(img image.Image) WasteResult {
	ratio := GreenProportion(img)
	if ratio > biodegradableRatio {
		return WasteResult{Label: entities.Biodegradable, Score: ratio, RecommendedAction: ActionCompost}
	}
	return WasteResult{Label: entities.NonBiodegradable, Score: ratio, RecommendedAction: ActionRecycle}
}

// GreenProportion returns the fraction of sampled pixels whose green channel
// dominates red and blue and exceeds the green threshold
func GreenProportion(img image.Image) float64 {
	img = dropAlpha(img)
	grid := image.NewNRGBA(image.Rect(0, 0, SampleSize, SampleSize))
	draw.CatmullRom.Scale(grid, grid.Bounds(), img, img.Bounds(), draw.Src, nil)

	green := 0
	for i := 0; i < len(grid.Pix); i += 4 {
		r, g, b := grid.Pix[i], grid.Pix[i+1], grid.Pix[i+2]
		if g > r && g > b && g > greenThreshold {
			green++
		}
	}
	return float64(green) / float64(SampleSize*SampleSize)
}

// dropAlpha makes non-premultiplied sources opaque, keeping their raw colour
// channels. Transparent pixels otherwise lose their colour when scaled.
func dropAlpha(img image.Image) image.Image {
	switch src := img.(type) {
	case *image.NRGBA:
		b := src.Bounds()
		dst := image.NewNRGBA(b)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := src.Pix[src.PixOffset(b.Min.X, y):src.PixOffset(b.Max.X, y)]
			copy(dst.Pix[dst.PixOffset(b.Min.X, y):], row)
		}
		for i := 3; i < len(dst.Pix); i += 4 {
			dst.Pix[i] = 0xff
		}
		return dst
	case *image.NRGBA64:
		b := src.Bounds()
		dst := image.NewNRGBA64(b)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := src.Pix[src.PixOffset(b.Min.X, y):src.PixOffset(b.Max.X, y)]
			copy(dst.Pix[dst.PixOffset(b.Min.X, y):], row)
		}
		for i := 6; i < len(dst.Pix); i += 8 {
			dst.Pix[i], dst.Pix[i+1] = 0xff, 0xff
		}
		return dst
	case *image.Paletted:
		palette := make(color.Palette, len(src.Palette))
		for i, c := range src.Palette {
			n := color.NRGBAModel.Convert(c).(color.NRGBA)
			n.A = 0xff
			palette[i] = n
		}
		return &image.Paletted{Pix: src.Pix, Stride: src.Stride, Rect: src.Rect, Palette: palette}
	}
	return img
}
