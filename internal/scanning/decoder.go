// Package scanning turns a single frame into at most one decoded barcode.
package scanning

import (
	"context"
	"image"
)

// Detection is the barcode found in one frame
type Detection struct {
	Value     string          `json:"value"`
	Symbology string          `json:"symbology,omitempty"`
	Bounds    image.Rectangle `json:"bounds"`
}

// Decoder defines the interface for barcode decoding backends
type Decoder interface {
	// Decode looks for a barcode in img. It returns nil, nil when there is
	// none; when several are visible only the first is returned. Backends
	// that block stop waiting once ctx is done.
	Decode(ctx context.Context, img image.Image) (*Detection, error)
	// Close closes the decoder and releases resources
	Close() error
}
