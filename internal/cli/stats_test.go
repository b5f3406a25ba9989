package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededStore(t *testing.T, backend string) string {
	t.Helper()
	dir := t.TempDir()
	src := writeFile(t, dir, "old.json", legacySnapshot)
	db := filepath.Join(dir, "store")
	_, _, err := execute(t, importCommand("text"), "--json", src, "--db", db, "--backend", backend)
	require.NoError(t, err)
	return db
}

func TestStats_Text(t *testing.T) {
	db := seededStore(t, "sqlite")

	stdout, _, err := execute(t, NewStatsCommand(&RootOptions{Format: "text"}), "--db", db)
	require.NoError(t, err)

	assert.Contains(t, stdout, "Unique numbers tested: 3")
	assert.Contains(t, stdout, "Longest sequence: 118 steps (number: 97)")
	assert.Contains(t, stdout, "Highest peak: 9,232 (from: 27)")
	assert.Contains(t, stdout, "All-time average steps: 114.50")
}

func TestStats_JSON(t *testing.T) {
	for _, backend := range []string{"sqlite", "sqlite-pure", "badger"} {
		t.Run(backend, func(t *testing.T) {
			db := seededStore(t, backend)

			stdout, _, err := execute(t, NewStatsCommand(&RootOptions{Format: "json"}), "--db", db, "--backend", backend)
			require.NoError(t, err)

			var res struct {
				Tested  int64 `json:"tested"`
				AllTime struct {
					LongestSequence int64 `json:"longest_sequence"`
					LongestNum      int64 `json:"longest_num"`
					HighestPeakNum  int64 `json:"highest_peak_num"`
				} `json:"all_time"`
				AverageSteps float64 `json:"average_steps"`
			}
			decodeResponse(t, stdout, &res)
			assert.Equal(t, int64(3), res.Tested)
			assert.Equal(t, int64(118), res.AllTime.LongestSequence)
			assert.Equal(t, int64(97), res.AllTime.LongestNum)
			assert.Equal(t, int64(27), res.AllTime.HighestPeakNum)
			assert.InDelta(t, 114.5, res.AverageSteps, 1e-9)
		})
	}
}

func TestStats_MissingStore(t *testing.T) {
	db := filepath.Join(t.TempDir(), "none.db")

	_, _, err := execute(t, NewStatsCommand(&RootOptions{Format: "text"}), "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, statErr := os.Stat(db)
	assert.True(t, os.IsNotExist(statErr), "stats must not create a store")
}

func TestCheck_SoundStore(t *testing.T) {
	db := seededStore(t, "sqlite")

	stdout, _, err := execute(t, NewCheckCommand(&RootOptions{Format: "json"}), "--db", db)
	require.NoError(t, err)

	var res CheckResult
	decodeResponse(t, stdout, &res)
	assert.True(t, res.OK)
	assert.Equal(t, int64(3), res.Tested)
}

func TestCheck_SoundBadgerStore(t *testing.T) {
	db := seededStore(t, "badger")

	stdout, _, err := execute(t, NewCheckCommand(&RootOptions{Format: "text"}), "--db", db, "--backend", "badger")
	require.NoError(t, err)
	assert.Contains(t, stdout, "is sound (3 tested numbers)")
}

func TestCheck_CorruptStore(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "garbage.db")
	require.NoError(t, os.WriteFile(db, bytes.Repeat([]byte("not a sqlite file! "), 512), 0o644))

	stdout, _, err := execute(t, NewCheckCommand(&RootOptions{Format: "json"}), "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, stdout, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "CORRUPT_STORE", resp.Error.Code)
}
