package harness

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// RunWithGolden runs a scenario, fails t on unmet expectations, and compares
// the summary against testdata/golden/<name>.golden.
// Use `go test -update` to regenerate golden files.
func RunWithGolden(t *testing.T, s *Scenario) *Result {
	t.Helper()

	result, err := Run(s)
	if err != nil {
		t.Fatalf("scenario %s: harness error: %v", s.Name, err)
	}
	for _, f := range result.Failures() {
		t.Errorf("scenario %s: %s", s.Name, f)
	}

	snapshot, err := Snapshot(result)
	if err != nil {
		t.Fatalf("scenario %s: %v", s.Name, err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, s.Name, snapshot)
	return result
}

// Snapshot renders the deterministic part of a result as indented JSON.
// Timing fields are fixed by the harness clock, so the whole summary is
// stable across runs.
func Snapshot(r *Result) ([]byte, error) {
	out := struct {
		Summary any    `json:"summary"`
		Error   string `json:"error,omitempty"`
		Batches []int  `json:"batches"`
	}{
		Summary: r.Summary,
		Batches: r.Batches,
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	if out.Batches == nil {
		out.Batches = []int{}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return append(data, '\n'), nil
}
