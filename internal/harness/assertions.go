package harness

import (
	"math/big"
	"slices"

	"github.com/dustinober1/3x1-Project/internal/record"
)

// checkExpect records a failure on r for every expectation the summary
// does not meet.
func checkExpect(r *Result, e Expect) {
	s := r.Summary

	if e.State != nil && s.State.String() != *e.State {
		r.fail("state: expected %s, got %s", *e.State, s.State)
	}
	if e.Error != nil && (r.Err != nil) != *e.Error {
		r.fail("error: expected error=%t, got %v", *e.Error, r.Err)
	}

	checkInt64(r, "new_tests", e.NewTests, s.NewTests)
	checkInt64(r, "duplicates_skipped", e.DuplicatesSkipped, s.DuplicatesSkipped)
	checkInt64(r, "attempts", e.Attempts, s.Attempts)
	checkInt64(r, "final_count", e.FinalCount, s.FinalCount)
	checkInt64(r, "cutoff_hits", e.CutoffHits, s.CutoffHits)
	checkInt(r, "checkpoints", e.Checkpoints, s.Checkpoints)
	checkInt(r, "failed_checkpoints", e.FailedCheckpoints, s.FailedCheckpoints)
	checkInt(r, "lost", e.Lost, s.Lost)

	if e.AttemptCapReached != nil && s.AttemptCapReached != *e.AttemptCapReached {
		r.fail("attempt_cap_reached: expected %t, got %t", *e.AttemptCapReached, s.AttemptCapReached)
	}

	if e.AllTime != nil {
		checkStats(r, *e.AllTime, s.AllTime)
	}

	if e.TopLongest != nil {
		got := make([]string, len(s.TopLongest))
		for i, entry := range s.TopLongest {
			got[i] = entry.Value.String()
		}
		want := make([]string, len(e.TopLongest))
		for i, v := range e.TopLongest {
			want[i] = v.String()
		}
		if !slices.Equal(got, want) {
			r.fail("top_longest: expected %v, got %v", want, got)
		}
	}

	if e.Batches != nil && !slices.Equal(e.Batches, r.Batches) {
		r.fail("batches: expected %v, got %v", e.Batches, r.Batches)
	}
}

// checkStats compares only the fields set in want.
func checkStats(r *Result, want StatsSpec, got record.Stats) {
	if want.LongestSteps != 0 && got.LongestSequenceSteps != want.LongestSteps {
		r.fail("all_time.longest_steps: expected %d, got %d", want.LongestSteps, got.LongestSequenceSteps)
	}
	checkBig(r, "all_time.longest_value", want.LongestValue.Int, got.LongestSequenceValue)
	checkBig(r, "all_time.peak", want.Peak.Int, got.HighestPeakValue)
	checkBig(r, "all_time.peak_source", want.PeakSource.Int, got.HighestPeakSourceValue)
	if want.TotalSteps != 0 && got.CumulativeSteps != want.TotalSteps {
		r.fail("all_time.total_steps: expected %d, got %d", want.TotalSteps, got.CumulativeSteps)
	}
	if want.TotalNumbers != 0 && got.CumulativeSampleCount != want.TotalNumbers {
		r.fail("all_time.total_numbers: expected %d, got %d", want.TotalNumbers, got.CumulativeSampleCount)
	}
}

func checkBig(r *Result, field string, want, got *big.Int) {
	if want == nil {
		return
	}
	if got == nil || want.Cmp(got) != 0 {
		r.fail("%s: expected %s, got %v", field, want, got)
	}
}

func checkInt64(r *Result, field string, want *int64, got int64) {
	if want != nil && got != *want {
		r.fail("%s: expected %d, got %d", field, *want, got)
	}
}

func checkInt(r *Result, field string, want *int, got int) {
	if want != nil && got != *want {
		r.fail("%s: expected %d, got %d", field, *want, got)
	}
}
