// Package journal keeps a record of finished scanning attempts.
package journal

import (
	"time"

	"github.com/zombor/barcode-scanner/internal/confirm"
)

// Attempt is one finished scanning attempt
type Attempt struct {
	ID         string         `json:"id"`
	Source     string         `json:"source"`
	Decoder    string         `json:"decoder"`
	Config     confirm.Config `json:"config"`
	Result     confirm.Result `json:"result"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}
