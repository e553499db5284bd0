package scanning

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// ZXing decodes retail 1D barcodes (EAN/UPC), Code 128 and QR codes in-process
type ZXing struct {
	readers []gozxing.Reader
	hints   map[gozxing.DecodeHintType]interface{}
}

// NewZXing creates a ZXing decoder. tryHarder trades speed for accuracy on
// blurred or rotated frames.
func NewZXing(tryHarder bool) *ZXing {
	hints := map[gozxing.DecodeHintType]interface{}{}
	if tryHarder {
		hints[gozxing.DecodeHintType_TRY_HARDER] = true
	}

	// Readers are tried in order; the first hit is the frame's detection
	return &ZXing{
		readers: []gozxing.Reader{
			oned.NewMultiFormatUPCEANReader(hints),
			oned.NewCode128Reader(),
			qrcode.NewQRCodeReader(),
		},
		hints: hints,
	}
}

// Decode returns the first barcode any reader finds
func (z *ZXing) Decode(_ context.Context, img image.Image) (*Detection, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil, fmt.Errorf("binarizing frame: %w", err)
	}

	for _, reader := range z.readers {
		result, err := reader.Decode(bmp, z.hints)
		reader.Reset()
		if err != nil || result == nil || result.GetText() == "" {
			// Not found, checksum and format failures all mean "nothing here" for this reader
			continue
		}
		return &Detection{
			Value:     result.GetText(),
			Symbology: result.GetBarcodeFormat().String(),
			Bounds:    pointsBounds(result.GetResultPoints()),
		}, nil
	}
	return nil, nil
}

// Close is a no-op; the readers hold no external resources
func (z *ZXing) Close() error {
	return nil
}

// pointsBounds returns the smallest rectangle containing every result point
func pointsBounds(points []gozxing.ResultPoint) image.Rectangle {
	if len(points) == 0 {
		return image.Rectangle{}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		if p == nil {
			continue
		}
		minX = math.Min(minX, p.GetX())
		minY = math.Min(minY, p.GetY())
		maxX = math.Max(maxX, p.GetX())
		maxY = math.Max(maxY, p.GetY())
	}
	if math.IsInf(minX, 1) {
		return image.Rectangle{}
	}
	return image.Rect(int(minX), int(minY), int(math.Ceil(maxX)), int(math.Ceil(maxY)))
}
