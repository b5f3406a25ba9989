package record

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// StatsKey is the fixed identifier of the single statistics row.
const StatsKey = "all_time_stats"

// Stats is the all-time aggregate record.
//
// Invariants maintained by Observe:
//   - CumulativeSampleCount equals the number of observed runs
//   - LongestSequenceSteps is the maximum step count observed
//   - HighestPeakValue is the maximum peak observed
//
// Ties never overwrite a record holder: the first value seen keeps it.
// The zero value is a valid empty record.
type Stats struct {
	LongestSequenceSteps   int64
	LongestSequenceValue   *big.Int
	HighestPeakValue       *big.Int
	HighestPeakSourceValue *big.Int
	CumulativeSteps        int64
	CumulativeSampleCount  int64
}

// statsJSON is the stored form. Keys match the snapshot format written by
// earlier versions of the tool so migrated stores load unchanged.
type statsJSON struct {
	LongestSequence int64    `json:"longest_sequence"`
	LongestNum      *big.Int `json:"longest_num"`
	HighestPeak     *big.Int `json:"highest_peak"`
	HighestPeakNum  *big.Int `json:"highest_peak_num"`
	TotalSteps      int64    `json:"total_steps"`
	TotalNumbers    int64    `json:"total_numbers"`
}

// Observe folds one evaluator run into the record.
// Returns which records the run took over.
func (s *Stats) Observe(value *big.Int, steps int64, peak *big.Int) (longest, highest bool) {
	s.CumulativeSteps += steps
	s.CumulativeSampleCount++

	if steps > s.LongestSequenceSteps {
		s.LongestSequenceSteps = steps
		s.LongestSequenceValue = new(big.Int).Set(value)
		longest = true
	}
	if peak.Cmp(orZero(s.HighestPeakValue)) > 0 {
		s.HighestPeakValue = new(big.Int).Set(peak)
		s.HighestPeakSourceValue = new(big.Int).Set(value)
		highest = true
	}
	return longest, highest
}

// Clone returns a deep copy so callers can snapshot the record.
func (s Stats) Clone() Stats {
	return Stats{
		LongestSequenceSteps:   s.LongestSequenceSteps,
		LongestSequenceValue:   cloneInt(s.LongestSequenceValue),
		HighestPeakValue:       cloneInt(s.HighestPeakValue),
		HighestPeakSourceValue: cloneInt(s.HighestPeakSourceValue),
		CumulativeSteps:        s.CumulativeSteps,
		CumulativeSampleCount:  s.CumulativeSampleCount,
	}
}

// AverageSteps returns CumulativeSteps / CumulativeSampleCount, or 0 for an
// empty record.
func (s Stats) AverageSteps() float64 {
	if s.CumulativeSampleCount == 0 {
		return 0
	}
	return float64(s.CumulativeSteps) / float64(s.CumulativeSampleCount)
}

// Equal reports whether two records hold the same values. A nil integer
// equals zero.
func (s Stats) Equal(o Stats) bool {
	return s.LongestSequenceSteps == o.LongestSequenceSteps &&
		s.CumulativeSteps == o.CumulativeSteps &&
		s.CumulativeSampleCount == o.CumulativeSampleCount &&
		orZero(s.LongestSequenceValue).Cmp(orZero(o.LongestSequenceValue)) == 0 &&
		orZero(s.HighestPeakValue).Cmp(orZero(o.HighestPeakValue)) == 0 &&
		orZero(s.HighestPeakSourceValue).Cmp(orZero(o.HighestPeakSourceValue)) == 0
}

// MarshalJSON writes the record with arbitrary-precision JSON numbers.
// Nil integers are written as 0, never null.
func (s Stats) MarshalJSON() ([]byte, error) {
	return json.Marshal(statsJSON{
		LongestSequence: s.LongestSequenceSteps,
		LongestNum:      orZero(s.LongestSequenceValue),
		HighestPeak:     orZero(s.HighestPeakValue),
		HighestPeakNum:  orZero(s.HighestPeakSourceValue),
		TotalSteps:      s.CumulativeSteps,
		TotalNumbers:    s.CumulativeSampleCount,
	})
}

// UnmarshalJSON reads the stored form. Missing keys decode as zero.
func (s *Stats) UnmarshalJSON(data []byte) error {
	var w statsJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode stats: %w", err)
	}
	if w.LongestSequence < 0 || w.TotalSteps < 0 || w.TotalNumbers < 0 {
		return fmt.Errorf("decode stats: negative counter")
	}
	*s = Stats{
		LongestSequenceSteps:   w.LongestSequence,
		LongestSequenceValue:   orZero(w.LongestNum),
		HighestPeakValue:       orZero(w.HighestPeak),
		HighestPeakSourceValue: orZero(w.HighestPeakNum),
		CumulativeSteps:        w.TotalSteps,
		CumulativeSampleCount:  w.TotalNumbers,
	}
	return nil
}

// Normalize replaces nil integers with zero.
func (s Stats) Normalize() Stats {
	s.LongestSequenceValue = orZero(s.LongestSequenceValue)
	s.HighestPeakValue = orZero(s.HighestPeakValue)
	s.HighestPeakSourceValue = orZero(s.HighestPeakSourceValue)
	return s
}

func orZero(n *big.Int) *big.Int {
	if n == nil {
		return new(big.Int)
	}
	return n
}

func cloneInt(n *big.Int) *big.Int {
	if n == nil {
		return nil
	}
	return new(big.Int).Set(n)
}
