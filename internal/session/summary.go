package session

import (
	"cmp"
	"math/big"
	"slices"
	"time"

	"github.com/dustinober1/3x1-Project/internal/record"
)

// Entry is one evaluated integer.
type Entry struct {
	Value *big.Int `json:"value"`
	Steps int64    `json:"steps"`
	Peak  *big.Int `json:"peak"`
}

// PeakRatio returns Peak / Value as a float.
func (e Entry) PeakRatio() float64 {
	if e.Value == nil || e.Value.Sign() == 0 || e.Peak == nil {
		return 0
	}
	r, _ := new(big.Float).Quo(new(big.Float).SetInt(e.Peak), new(big.Float).SetInt(e.Value)).Float64()
	return r
}

// Summary describes one finished session. It is built by the Driver and is
// not persisted beyond the session log.
type Summary struct {
	SessionID string        `json:"session_id"`
	State     State         `json:"state"`
	StartedAt time.Time     `json:"started_at"`
	Elapsed   time.Duration `json:"elapsed_ns"`

	Target            int64 `json:"target"`
	NewTests          int64 `json:"new_tests"`
	DuplicatesSkipped int64 `json:"duplicates_skipped"`
	Attempts          int64 `json:"attempts"`
	SessionSteps      int64 `json:"session_steps"`

	// CutoffHits counts trajectories stopped by the step cutoff.
	CutoffHits int64 `json:"cutoff_hits"`

	Shortest   *Entry  `json:"shortest,omitempty"`
	TopLongest []Entry `json:"top_longest"`
	TopPeaks   []Entry `json:"top_peaks"`

	InitialCount int64        `json:"initial_count"`
	FinalCount   int64        `json:"final_count"`
	AllTime      record.Stats `json:"all_time"`

	Checkpoints       int `json:"checkpoints"`
	FailedCheckpoints int `json:"failed_checkpoints"`

	// Lost is the number of evaluated integers that could not be committed.
	Lost int `json:"lost"`

	Interrupted       bool `json:"interrupted"`
	AttemptCapReached bool `json:"attempt_cap_reached"`

	topN int
}

// AverageSteps returns the mean step count of this session's new tests.
func (s *Summary) AverageSteps() float64 {
	if s.NewTests == 0 {
		return 0
	}
	return float64(s.SessionSteps) / float64(s.NewTests)
}

// Rate returns new tests per second.
func (s *Summary) Rate() float64 {
	secs := s.Elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.NewTests) / secs
}

// AllReachedOne reports whether every trajectory this session reached 1
// within the step cutoff.
func (s *Summary) AllReachedOne() bool {
	return s.CutoffHits == 0
}

// IsLongestRecord reports whether e is the all-time longest-sequence holder.
func (s *Summary) IsLongestRecord(e Entry) bool {
	return e.Steps == s.AllTime.LongestSequenceSteps &&
		s.AllTime.LongestSequenceValue != nil &&
		e.Value.Cmp(s.AllTime.LongestSequenceValue) == 0
}

// IsPeakRecord reports whether e is the all-time highest-peak holder.
func (s *Summary) IsPeakRecord(e Entry) bool {
	return s.AllTime.HighestPeakValue != nil && s.AllTime.HighestPeakSourceValue != nil &&
		e.Peak.Cmp(s.AllTime.HighestPeakValue) == 0 &&
		e.Value.Cmp(s.AllTime.HighestPeakSourceValue) == 0
}

// observe folds one evaluation into the session-local lists.
func (s *Summary) observe(e Entry) {
	s.NewTests++
	s.SessionSteps += e.Steps

	if s.Shortest == nil || e.Steps < s.Shortest.Steps {
		c := e
		s.Shortest = &c
	}

	s.TopLongest = pushTop(s.TopLongest, e, s.topN, byStepsDesc)
	s.TopPeaks = pushTop(s.TopPeaks, e, s.topN, byPeakDesc)
}

// byStepsDesc orders by (steps, value) descending.
func byStepsDesc(a, b Entry) int {
	if c := cmp.Compare(b.Steps, a.Steps); c != 0 {
		return c
	}
	return b.Value.Cmp(a.Value)
}

// byPeakDesc orders by (peak, value) descending.
func byPeakDesc(a, b Entry) int {
	if c := b.Peak.Cmp(a.Peak); c != 0 {
		return c
	}
	return b.Value.Cmp(a.Value)
}

// pushTop inserts e into the sorted list, keeping at most n entries.
func pushTop(list []Entry, e Entry, n int, order func(a, b Entry) int) []Entry {
	if n <= 0 {
		return list
	}
	if len(list) == n && order(e, list[n-1]) >= 0 {
		return list
	}
	i, _ := slices.BinarySearchFunc(list, e, order)
	list = slices.Insert(list, i, e)
	if len(list) > n {
		list = list[:n]
	}
	return list
}
