package confirm

import (
	"time"
	"unicode/utf8"
)

type entry struct {
	candidate Candidate
	count     int
	seen      int // order of first observation
}

// Session is the state of one scanning attempt. It is not safe for
// concurrent use; the driving loop owns it exclusively.
type Session struct {
	cfg   Config
	clock Clock
	start time.Time

	tally  map[string]*entry
	order  []*entry
	recent []*entry // last accepted reads, oldest first; only with a window

	frames     int
	detections int

	status    Status
	confirmed *entry
	endedAt   time.Time
	result    *Result
}

// NewSession starts a session at clock.Now(). A nil clock uses the system
// clock; a non-positive threshold is treated as 1.
func NewSession(cfg Config, clock Clock) *Session {
	if clock == nil {
		clock = SystemClock()
	}
	if cfg.Threshold < 1 {
		cfg.Threshold = 1
	}
	if cfg.Window < 0 {
		cfg.Window = 0
	}
	return &Session{
		cfg:   cfg,
		clock: clock,
		start: clock.Now(),
		tally: make(map[string]*entry),
	}
}

// Status returns the current state.
func (s *Session) Status() Status {
	return s.status
}

// Remaining returns how much of the timeout is left. It is negative once the
// timeout has passed.
func (s *Session) Remaining() time.Duration {
	return s.cfg.Timeout - s.clock.Now().Sub(s.start)
}

// Observe records the detection of one frame, nil meaning the frame decoded
// to nothing. A read shorter than the configured minimum length counts as
// nothing. At most one value gains a vote per call. The first value to
// reach the threshold confirms the session; otherwise the timeout is checked.
// A terminal session is left untouched and reports its terminal status.
func (s *Session) Observe(c *Candidate) Status {
	if s.status.Terminal() {
		return s.status
	}
	s.frames++

	if c != nil && utf8.RuneCountInString(c.Value) >= s.cfg.MinLength {
		s.detections++
		e, ok := s.tally[c.Value]
		if !ok {
			e = &entry{candidate: *c, seen: len(s.order)}
			s.tally[c.Value] = e
			s.order = append(s.order, e)
		}
		e.count++

		if winner := s.vote(e); winner != nil {
			s.confirmed = winner
			return s.terminate(Confirmed)
		}
	}

	return s.CheckTimeout()
}

// vote applies the confirmation rule to a freshly counted read and returns
// the confirmed entry, if any.
func (s *Session) vote(e *entry) *entry {
	if s.cfg.Window == 0 {
		if e.count >= s.cfg.Threshold {
			return e
		}
		return nil
	}

	s.recent = append(s.recent, e)
	if len(s.recent) < s.cfg.Window {
		return nil
	}
	if mode, n := windowMode(s.recent); n >= s.cfg.Threshold {
		return mode
	}
	s.recent = s.recent[1:]
	return nil
}

// windowMode returns the most frequent entry in reads and its frequency.
// Ties go to the entry that appears earliest in reads.
func windowMode(reads []*entry) (*entry, int) {
	counts := make(map[*entry]int, len(reads))
	for _, e := range reads {
		counts[e]++
	}
	var mode *entry
	best := 0
	for _, e := range reads {
		if counts[e] > best {
			mode, best = e, counts[e]
		}
	}
	return mode, best
}

// CheckTimeout ends the session as TimedOut once more than the configured
// timeout has elapsed since it started.
func (s *Session) CheckTimeout() Status {
	if s.status.Terminal() {
		return s.status
	}
	if s.clock.Now().Sub(s.start) > s.cfg.Timeout {
		return s.terminate(TimedOut)
	}
	return Continue
}

// Abort ends the session because of an external stop request.
func (s *Session) Abort() Status {
	return s.terminate(Aborted)
}

// Exhaust ends the session because the frame source stopped for good.
func (s *Session) Exhaust() Status {
	return s.terminate(Exhausted)
}

func (s *Session) terminate(st Status) Status {
	if s.status.Terminal() {
		return s.status
	}
	s.status = st
	s.endedAt = s.clock.Now()
	return st
}

// Tally returns the votes in the order values were first observed.
func (s *Session) Tally() []Vote {
	votes := make([]Vote, 0, len(s.order))
	for _, e := range s.order {
		votes = append(votes, Vote{Candidate: e.candidate, Count: e.count})
	}
	return votes
}

// Count returns the number of votes value has received.
func (s *Session) Count(value string) int {
	if e, ok := s.tally[value]; ok {
		return e.count
	}
	return 0
}

// Finalize returns the decision of the session: the confirmed value, else the
// value with the most votes, else Empty. Among values tied for the most votes
// the one observed first wins. The result is computed once; later calls
// return the same Result. Finalizing a session that is still scanning closes
// it as Aborted.
func (s *Session) Finalize() Result {
	if s.result != nil {
		return *s.result
	}
	if !s.status.Terminal() {
		s.terminate(Aborted)
	}

	r := Result{
		Kind:       Empty,
		Status:     s.status,
		Frames:     s.frames,
		Detections: s.detections,
		Elapsed:    s.endedAt.Sub(s.start),
		StartedAt:  s.start,
		FinishedAt: s.endedAt,
		Tally:      s.Tally(),
	}

	winner := s.confirmed
	if winner != nil {
		r.Kind = ConfirmedValue
	} else if winner = s.plurality(); winner != nil {
		r.Kind = Plurality
	}
	if winner != nil {
		c := winner.candidate
		r.Candidate = &c
		r.Votes = winner.count
	}

	s.result = &r
	return r
}

// plurality walks values in first-observed order and keeps only strictly
// greater counts, so ties resolve to the earliest value.
func (s *Session) plurality() *entry {
	var best *entry
	for _, e := range s.order {
		if best == nil || e.count > best.count {
			best = e
		}
	}
	return best
}
