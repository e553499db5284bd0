// Package capture supplies frames to the scan loop from a camera, a video
// file, or a directory of still images and documents.
package capture

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrNoFrame means no frame was available this time; the caller may try again.
	ErrNoFrame = errors.New("no frame available")
	// ErrExhausted means the source will not produce any more frames.
	ErrExhausted = errors.New("frame source exhausted")
)

// Frame is one captured image
type Frame struct {
	Seq      uint64
	Image    image.Image
	Origin   string // device, file or page the frame came from
	Captured time.Time
}

// Source defines the interface for frame producers
type Source interface {
	// Next returns the next frame, ErrNoFrame when none is ready yet, or
	// ErrExhausted once the source has ended
	Next() (Frame, error)
	// Close releases the underlying device or files
	Close() error
}

// Opener acquires a Source. The scan loop calls it once per attempt and
// closes what it returns.
type Opener func() (Source, error)

// Open returns an Opener for spec. A numeric spec selects a camera by index,
// an existing directory or still-image/PDF file is read frame by frame, and
// anything else (video file, stream URL) is handed to the video capture backend.
func Open(spec string) Opener {
	spec = strings.TrimSpace(spec)
	return func() (Source, error) {
		if spec == "" {
			return nil, fmt.Errorf("frame source is required")
		}
		var device interface{} = spec
		if idx, err := strconv.Atoi(spec); err == nil {
			device = idx
		} else if info, err := os.Stat(spec); err == nil && (info.IsDir() || IsStill(spec)) {
			dir, err := NewDirectory(spec)
			if err != nil {
				return nil, err
			}
			slog.Info("Reading frames from files", "path", spec, "files", dir.Len())
			return dir, nil
		}

		camera, err := OpenCamera(device)
		if err != nil {
			return nil, err
		}
		return camera, nil
	}
}
