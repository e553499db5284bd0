package scan

import (
	"log/slog"
	"time"

	"github.com/zombor/barcode-scanner/internal/capture"
	"github.com/zombor/barcode-scanner/internal/confirm"
	"github.com/zombor/barcode-scanner/internal/scanning"
)

// Observer is told about each decoded frame and the final result. It is the
// presentation hook of the loop and must not block.
type Observer interface {
	FrameDecoded(frame capture.Frame, detection *scanning.Detection, session *confirm.Session)
	Finished(result confirm.Result)
}

type nopObserver struct{}

func (nopObserver) FrameDecoded(capture.Frame, *scanning.Detection, *confirm.Session) {}
func (nopObserver) Finished(confirm.Result)                                          {}

// LogObserver reports scanning progress through slog
type LogObserver struct {
	Logger *slog.Logger
}

func (o LogObserver) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// FrameDecoded logs each detection with its running vote count
func (o LogObserver) FrameDecoded(frame capture.Frame, detection *scanning.Detection, session *confirm.Session) {
	log := o.logger()
	if detection == nil {
		log.Debug("Scanning...", "frame", frame.Seq)
		return
	}
	log.Info("DETECTED",
		"value", detection.Value,
		"symbology", detection.Symbology,
		"count", session.Count(detection.Value),
		"frame", frame.Seq,
		"origin", frame.Origin,
		"latency", time.Since(frame.Captured).Round(time.Millisecond),
	)
	if session.Status() == confirm.Confirmed {
		log.Info("CONFIRMED", "value", detection.Value)
	}
}

// Finished logs why the attempt ended and what it decided
func (o LogObserver) Finished(result confirm.Result) {
	log := o.logger()

	switch result.Status {
	case confirm.TimedOut:
		log.Info("Scan timeout reached", "elapsed", result.Elapsed)
	case confirm.Aborted:
		log.Info("User terminated scanning")
	case confirm.Exhausted:
		log.Info("Frame source ended")
	}

	switch result.Kind {
	case confirm.Plurality:
		log.Info("CONFIRMED BARCODE (by frequency)", "value", result.Value(), "count", result.Votes)
	case confirm.Empty:
		log.Info("No barcode detected")
	}

	log.Info("Barcode scanning complete",
		"status", result.Status.String(),
		"frames", result.Frames,
		"detections", result.Detections,
	)
}
