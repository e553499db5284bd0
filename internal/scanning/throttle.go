package scanning

import (
	"context"
	"image"

	"golang.org/x/time/rate"
)

// Throttled caps how often the wrapped decoder is called. Frames over the
// budget are reported as having no barcode rather than waiting, so a slow or
// metered backend never stalls the scan loop.
type Throttled struct {
	Decoder
	limiter *rate.Limiter
	skipped int
}

// NewThrottled allows perSecond calls per second with the given burst.
func NewThrottled(d Decoder, perSecond float64, burst int) *Throttled {
	if burst < 1 {
		burst = 1
	}
	return &Throttled{
		Decoder: d,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Decode forwards to the wrapped decoder when the rate allows it
func (t *Throttled) Decode(ctx context.Context, img image.Image) (*Detection, error) {
	if !t.limiter.Allow() {
		t.skipped++
		return nil, nil
	}
	return t.Decoder.Decode(ctx, img)
}

// Skipped returns how many frames were not forwarded
func (t *Throttled) Skipped() int {
	return t.skipped
}
