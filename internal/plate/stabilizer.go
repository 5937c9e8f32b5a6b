package plate

import (
	"time"
)

// Outcome of a single stabilizer observation.
type Outcome int

const (
	// Pending means the window is not yet full; no decision was made.
	Pending Outcome = iota
	// Skipped means a plate was resolved but suppressed by the cooldown.
	Skipped
	// Resolved means a stable plate identity was produced.
	Resolved
)

func (o Outcome) String() string {
	switch o {
	case Pending:
		return "pending"
	case Skipped:
		return "skipped"
	case Resolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Resolution is the result of one Observe call. Plate is set only when
// Outcome is Resolved or Skipped; Window holds the candidates that voted,
// captured before the window was cleared.
type Resolution struct {
	Outcome Outcome
	Plate   string
	Window  []string
}

// Stabilizer turns a noisy per-frame candidate stream into confident plate
// identities: it collects a fixed window of validated reads, resolves them
// by majority vote and deduplicates repeat resolutions of a lingering
// vehicle with a cooldown. One Stabilizer serves one physical lane and is
// not safe for concurrent use.
type Stabilizer struct {
	windowSize int
	cooldown   time.Duration

	window []string

	lastResolvedPlate string
	lastResolvedAt    time.Time
}

// NewStabilizer returns a stabilizer with the given window size and
// cooldown. A zero cooldown disables deduplication entirely, which is what
// the exit lane wants: every exit attempt must be evaluated and, when
// denied, logged again.
func NewStabilizer(windowSize int, cooldown time.Duration) *Stabilizer {
	if windowSize <= 0 {
		windowSize = 3
	}
	return &Stabilizer{
		windowSize: windowSize,
		cooldown:   cooldown,
		window:     make([]string, 0, windowSize),
	}
}

// Observe appends one validated candidate. Until the window fills it
// returns Pending. Every windowSize-th observation forces a resolution
// attempt and clears the window whether or not the attempt survives the
// cooldown.
func (s *Stabilizer) Observe(candidate string, now time.Time) Resolution {
	s.window = append(s.window, candidate)
	if len(s.window) < s.windowSize {
		return Resolution{Outcome: Pending}
	}

	voted := make([]string, len(s.window))
	copy(voted, s.window)
	s.window = s.window[:0]

	majority := majorityVote(voted)

	if s.cooldown > 0 &&
		majority == s.lastResolvedPlate &&
		now.Sub(s.lastResolvedAt) <= s.cooldown {
		return Resolution{Outcome: Skipped, Plate: majority, Window: voted}
	}

	s.lastResolvedPlate = majority
	s.lastResolvedAt = now
	return Resolution{Outcome: Resolved, Plate: majority, Window: voted}
}

// WindowLen reports the number of buffered candidates.
func (s *Stabilizer) WindowLen() int {
	return len(s.window)
}

// majorityVote picks the most frequent element; ties go to the element
// seen first in the window.
func majorityVote(window []string) string {
	counts := make(map[string]int, len(window))
	for _, p := range window {
		counts[p]++
	}

	best := ""
	bestCount := 0
	for _, p := range window {
		if counts[p] > bestCount {
			best = p
			bestCount = counts[p]
		}
	}
	return best
}
