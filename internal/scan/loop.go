// Package scan runs scanning attempts: it pumps frames from a capture source
// through a decoder into a confirmation session until the session ends.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zombor/barcode-scanner/internal/capture"
	"github.com/zombor/barcode-scanner/internal/confirm"
	"github.com/zombor/barcode-scanner/internal/scanning"
)

// DefaultMaxMisses is how many consecutive failed frame grabs end an attempt.
const DefaultMaxMisses = 30

// Loop drives one scanning attempt at a time.
type Loop struct {
	Open     capture.Opener
	Decoder  scanning.Decoder
	Config   confirm.Config
	Clock    confirm.Clock
	Observer Observer

	// MaxMisses consecutive transient grab failures are treated as the end
	// of the stream. Zero means DefaultMaxMisses.
	MaxMisses int
}

// Run performs one attempt and returns its single result. It never returns
// an error: open failures, exhausted streams, decoder failures and
// cancellation all end in a Result. The source is closed on every path.
func (l *Loop) Run(ctx context.Context) confirm.Result {
	session := confirm.NewSession(l.Config, l.Clock)
	observer := l.Observer
	if observer == nil {
		observer = nopObserver{}
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Scan loop failed", "panic", fmt.Sprint(r))
				session.Exhaust()
			}
		}()

		source, err := l.Open()
		if err != nil {
			slog.Error("Could not open frame source", "error", err)
			session.Exhaust()
			return
		}
		defer func() {
			if err := source.Close(); err != nil {
				slog.Warn("Failed to close frame source", "error", err)
			}
		}()

		l.pump(ctx, session, source, observer)
	}()

	result := session.Finalize()
	observer.Finished(result)
	return result
}

func (l *Loop) pump(ctx context.Context, session *confirm.Session, source capture.Source, observer Observer) {
	maxMisses := l.MaxMisses
	if maxMisses <= 0 {
		maxMisses = DefaultMaxMisses
	}
	misses := 0

	for {
		// Cancellation is only observed between frames
		if ctx.Err() != nil {
			session.Abort()
			return
		}

		frame, err := source.Next()
		if err != nil {
			if errors.Is(err, capture.ErrExhausted) {
				session.Exhaust()
				return
			}
			misses++
			if misses >= maxMisses {
				slog.Warn("Failed to grab frame - stream may have ended", "misses", misses, "error", err)
				session.Exhaust()
				return
			}
			if session.CheckTimeout().Terminal() {
				return
			}
			continue
		}
		misses = 0

		detection := l.decode(ctx, session, frame)
		var c *confirm.Candidate
		if detection != nil {
			c = &confirm.Candidate{Value: detection.Value, Symbology: detection.Symbology}
		}

		status := session.Observe(c)
		observer.FrameDecoded(frame, detection, session)
		if status.Terminal() {
			return
		}
	}
}

// decode runs the decoder on one frame, bounded by what is left of the
// attempt's timeout. Errors and panics count as no detection for that frame.
func (l *Loop) decode(ctx context.Context, session *confirm.Session, frame capture.Frame) (detection *scanning.Detection) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Decoder panicked", "frame", frame.Seq, "panic", fmt.Sprint(r))
			detection = nil
		}
	}()

	if frame.Image == nil || frame.Image.Bounds().Empty() {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, session.Remaining())
	defer cancel()

	detection, err := l.Decoder.Decode(ctx, frame.Image)
	if err != nil {
		slog.Debug("Decoder failed", "frame", frame.Seq, "origin", frame.Origin, "error", err)
		return nil
	}
	if detection != nil && detection.Value == "" {
		return nil
	}
	return detection
}
