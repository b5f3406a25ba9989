package sessionlog

import (
	"bytes"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dustinober1/3x1-Project/internal/record"
	"github.com/dustinober1/3x1-Project/internal/session"
)

func sampleEntry() Entry {
	return Entry{
		Timestamp:         time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local),
		NewTests:          1000,
		TotalUnique:       12345,
		LongestSteps:      1234,
		LongestValue:      big.NewInt(10_000_000_027),
		HighestPeak:       big.NewInt(9_232_000),
		HighestPeakSource: big.NewInt(10_000_000_027),
		AverageSteps:      123.25,
	}
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestWrite_Golden(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleEntry()))

	newGoldie(t).Assert(t, "session_block", buf.Bytes())
}

func TestWrite_HugeValues(t *testing.T) {
	peak, ok := new(big.Int).SetString("1234567890123456789012345678901234567890", 10)
	require.True(t, ok)
	e := sampleEntry()
	e.HighestPeak = peak

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, e))
	assert.Contains(t, buf.String(),
		"Highest peak: 1,234,567,890,123,456,789,012,345,678,901,234,567,890 (from: 10,000,000,027)\n")
}

func TestWrite_EmptyRecordWritesZeros(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Entry{Timestamp: sampleEntry().Timestamp}))

	out := buf.String()
	assert.Contains(t, out, "Longest sequence: 0 steps (number: 0)\n")
	assert.Contains(t, out, "Average steps: 0.00\n")
}

func TestParse_RoundTrip(t *testing.T) {
	first := sampleEntry()
	second := sampleEntry()
	second.Timestamp = second.Timestamp.Add(time.Hour)
	second.NewTests = 7
	second.AverageSteps = 2

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, first))
	require.NoError(t, Write(&buf, second))

	entries, err := Parse(&buf)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	for i, want := range []Entry{first, second} {
		got := entries[i]
		assert.True(t, want.Timestamp.Equal(got.Timestamp))
		assert.Equal(t, want.NewTests, got.NewTests)
		assert.Equal(t, want.TotalUnique, got.TotalUnique)
		assert.Equal(t, want.LongestSteps, got.LongestSteps)
		assert.Equal(t, 0, want.LongestValue.Cmp(got.LongestValue))
		assert.Equal(t, 0, want.HighestPeak.Cmp(got.HighestPeak))
		assert.Equal(t, 0, want.HighestPeakSource.Cmp(got.HighestPeakSource))
		assert.InDelta(t, want.AverageSteps, got.AverageSteps, 0.005)
	}
}

func TestParse_GoldenFile(t *testing.T) {
	f, err := os.Open(filepath.Join("testdata", "golden", "session_block.golden"))
	require.NoError(t, err)
	defer f.Close()

	entries, err := Parse(f)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(12345), entries[0].TotalUnique)
	assert.Equal(t, "10000000027", entries[0].LongestValue.String())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"stray text", "hello\n"},
		{"unterminated block", separator + "\nSession Date: 2024-03-01 12:00:00\n"},
		{"short block", separator + "\nSession Date: 2024-03-01 12:00:00\n" + separator + "\n"},
		{"bad date", strings.Replace(blockText(t), "2024-03-01 12:00:00", "yesterday", 1)},
		{"bad number", strings.Replace(blockText(t), "12,345", "12x345", 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	entries, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAppend_AndReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.txt")

	entries, err := ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, Append(path, sampleEntry()))
	require.NoError(t, Append(path, sampleEntry()))

	entries, err = ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestAppend_MissingDirectory(t *testing.T) {
	err := Append(filepath.Join(t.TempDir(), "missing", "results.txt"), sampleEntry())
	assert.Error(t, err)
}

func TestFromSummary(t *testing.T) {
	var all record.Stats
	all.Observe(big.NewInt(27), 111, big.NewInt(9232))

	sum := &session.Summary{
		NewTests:     4,
		SessionSteps: 10,
		FinalCount:   40,
		AllTime:      all,
	}
	at := sampleEntry().Timestamp

	e := FromSummary(sum, at)
	assert.Equal(t, at, e.Timestamp)
	assert.Equal(t, int64(4), e.NewTests)
	assert.Equal(t, int64(40), e.TotalUnique)
	assert.Equal(t, int64(111), e.LongestSteps)
	assert.Equal(t, "27", e.LongestValue.String())
	assert.Equal(t, "9232", e.HighestPeak.String())
	assert.Equal(t, "27", e.HighestPeakSource.String())
	assert.InDelta(t, 2.5, e.AverageSteps, 1e-9)
}

func blockText(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleEntry()))
	return buf.String()
}

func TestWrite_LeavesSummaryUnchanged(t *testing.T) {
	var all record.Stats
	all.Observe(big.NewInt(10_000_000_027), 300, big.NewInt(9_232_000_000))
	sum := &session.Summary{NewTests: 1, SessionSteps: 300, FinalCount: 1, AllTime: all}

	e := FromSummary(sum, sampleEntry().Timestamp)
	var first, second bytes.Buffer
	require.NoError(t, Write(&first, e))
	require.NoError(t, Write(&second, e))

	assert.Equal(t, first.String(), second.String())
	assert.Contains(t, first.String(), "Highest peak: 9,232,000,000 (from: 10,000,000,027)")
	assert.Equal(t, "10000000027", sum.AllTime.LongestSequenceValue.String())
	assert.Equal(t, "9232000000", sum.AllTime.HighestPeakValue.String())
	assert.Equal(t, "10000000027", sum.AllTime.HighestPeakSourceValue.String())
	assert.Equal(t, "10000000027", e.LongestValue.String())
}
