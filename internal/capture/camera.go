package capture

import (
	"fmt"
	"log/slog"
	"time"

	"gocv.io/x/gocv"
)

// Camera reads frames from an OpenCV VideoCapture: a device index, a video
// file or a stream URL.
type Camera struct {
	capture *gocv.VideoCapture
	mat     gocv.Mat
	device  string
	seq     uint64
}

// OpenCamera opens device, which is either an int camera index or a string
// path/URL.
func OpenCamera(device interface{}) (*Camera, error) {
	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("opening video capture %v: %w", device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("could not open video capture %v", device)
	}

	slog.Info("Video capture opened", "device", device)
	return &Camera{
		capture: vc,
		mat:     gocv.NewMat(),
		device:  fmt.Sprint(device),
	}, nil
}

// Next grabs the next frame. A failed grab on a capture that is still open is
// reported as ErrNoFrame; the loop decides when repeated misses mean the
// stream has ended.
func (c *Camera) Next() (Frame, error) {
	if !c.capture.IsOpened() {
		return Frame{}, ErrExhausted
	}
	if ok := c.capture.Read(&c.mat); !ok || c.mat.Empty() {
		return Frame{}, ErrNoFrame
	}

	img, err := c.mat.ToImage()
	if err != nil {
		return Frame{}, fmt.Errorf("converting frame: %w", err)
	}

	c.seq++
	return Frame{
		Seq:      c.seq,
		Image:    img,
		Origin:   c.device,
		Captured: time.Now(),
	}, nil
}

// Close releases the capture device
func (c *Camera) Close() error {
	c.mat.Close()
	if err := c.capture.Close(); err != nil {
		return fmt.Errorf("closing video capture: %w", err)
	}
	return nil
}
