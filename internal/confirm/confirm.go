// Package confirm decides which barcode a scanning attempt settles on.
//
// A Session accumulates one vote per frame for the value that frame decoded
// to, confirms the first value to reach the threshold and otherwise falls
// back to the most-voted value once the attempt ends. The package performs no
// I/O; time enters only through the Clock.
package confirm

import (
	"fmt"
	"time"
)

const (
	// DefaultThreshold is the number of votes needed to confirm a value.
	DefaultThreshold = 7
	// DefaultTimeout is the longest a single attempt may run.
	DefaultTimeout = 20 * time.Second
)

// Status is the state of a Session. Every value other than Continue is
// terminal.
type Status int

const (
	Continue Status = iota
	Confirmed
	TimedOut
	Aborted
	Exhausted
)

func (s Status) String() string {
	switch s {
	case Continue:
		return "scanning"
	case Confirmed:
		return "confirmed"
	case TimedOut:
		return "timed_out"
	case Aborted:
		return "aborted"
	case Exhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Terminal reports whether the status ends a session.
func (s Status) Terminal() bool {
	return s != Continue
}

// Kind says how a Result was reached.
type Kind int

const (
	Empty Kind = iota
	ConfirmedValue
	Plurality
)

func (k Kind) String() string {
	switch k {
	case ConfirmedValue:
		return "confirmed"
	case Plurality:
		return "plurality"
	default:
		return "empty"
	}
}

// MarshalText renders the kind by name in JSON output.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a name written by MarshalText.
func (k *Kind) UnmarshalText(text []byte) error {
	for _, candidate := range []Kind{Empty, ConfirmedValue, Plurality} {
		if candidate.String() == string(text) {
			*k = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown result kind %q", text)
}

// MarshalText renders the status by name in JSON output.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a name written by MarshalText.
func (s *Status) UnmarshalText(text []byte) error {
	for _, candidate := range []Status{Continue, Confirmed, TimedOut, Aborted, Exhausted} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}

// Candidate is one decoded barcode. Two candidates are the same vote when
// their Value strings are equal; Symbology is informational.
type Candidate struct {
	Value     string `json:"value"`
	Symbology string `json:"symbology,omitempty"`
}

// Vote is one tally entry.
type Vote struct {
	Candidate
	Count int `json:"count"`
}

// Config holds the tunables of a session.
//
// With Window zero a value is confirmed once its total vote count reaches
// Threshold. With Window set, only the last Window accepted reads are
// considered: once the window is full, the most frequent value in it is
// confirmed if it appears at least Threshold times, and otherwise the oldest
// read is dropped. Reads shorter than MinLength characters never vote.
type Config struct {
	Threshold int           `json:"threshold"`
	Timeout   time.Duration `json:"timeout"`
	Window    int           `json:"window,omitempty"`
	MinLength int           `json:"min_length,omitempty"`
}

// DefaultConfig returns the threshold and timeout used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Threshold: DefaultThreshold,
		Timeout:   DefaultTimeout,
	}
}

// Result is the single decision produced by Finalize.
type Result struct {
	Kind       Kind          `json:"kind"`
	Candidate  *Candidate    `json:"candidate,omitempty"`
	Votes      int           `json:"votes"`
	Status     Status        `json:"status"`
	Frames     int           `json:"frames"`
	Detections int           `json:"detections"`
	Elapsed    time.Duration `json:"elapsed"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Tally      []Vote        `json:"tally,omitempty"`
}

// Value returns the decided barcode, or "" for an Empty result.
func (r Result) Value() string {
	if r.Candidate == nil {
		return ""
	}
	return r.Candidate.Value
}

// Clock provides the current time
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock {
	return systemClock{}
}
