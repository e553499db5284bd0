package scanning

import (
	"context"
	"fmt"
	"image"
	"math"
	"sync"

	"gocv.io/x/gocv"
)

// OpenCVQR decodes QR codes with OpenCV's QRCodeDetector
type OpenCVQR struct {
	detector gocv.QRCodeDetector
	mu       sync.Mutex // Protects detector
}

// NewOpenCVQR creates a QR decoder backed by OpenCV
func NewOpenCVQR() *OpenCVQR {
	return &OpenCVQR{
		detector: gocv.NewQRCodeDetector(),
	}
}

// Decode detects and decodes one QR code
func (o *OpenCVQR) Decode(_ context.Context, img image.Image) (*Detection, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("converting frame: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, nil
	}

	points := gocv.NewMat()
	defer points.Close()
	straight := gocv.NewMat()
	defer straight.Close()

	value := o.detector.DetectAndDecode(mat, &points, &straight)
	if value == "" {
		return nil, nil
	}

	return &Detection{
		Value:     value,
		Symbology: "QR_CODE",
		Bounds:    matBounds(points),
	}, nil
}

// Close releases the detector
func (o *OpenCVQR) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.detector.Close()
}

// matBounds reads the corner points OpenCV reports (a 1xN or Nx1 matrix of
// float pairs) into a bounding rectangle
func matBounds(points gocv.Mat) image.Rectangle {
	if points.Empty() {
		return image.Rectangle{}
	}

	n, byRow := points.Cols(), false
	if points.Rows() > 1 {
		n, byRow = points.Rows(), true
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for i := 0; i < n; i++ {
		var v gocv.Vecf
		if byRow {
			v = points.GetVecfAt(i, 0)
		} else {
			v = points.GetVecfAt(0, i)
		}
		if len(v) < 2 {
			continue
		}
		x, y := float64(v[0]), float64(v[1])
		minX, minY = math.Min(minX, x), math.Min(minY, y)
		maxX, maxY = math.Max(maxX, x), math.Max(maxY, y)
	}
	if math.IsInf(minX, 1) {
		return image.Rectangle{}
	}
	return image.Rect(int(minX), int(minY), int(math.Ceil(maxX)), int(math.Ceil(maxY)))
}
