// Package sessionlog reads and writes the human-readable session log.
//
// The log is append-only. Each session adds one block:
//
//	======================================================================
//	Session Date: 2024-03-01 12:00:00
//	Numbers tested this session: 1,000
//	Total unique numbers tested: 12,345
//	Longest sequence: 1,234 steps (number: 10,000,000,027)
//	Highest peak: 9,232,000 (from: 10,000,000,027)
//	Average steps: 123.25
//	======================================================================
//
// Records in a block are the all-time records at the end of the session;
// the average is over the session's new tests only.
package sessionlog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dustinober1/3x1-Project/internal/session"
)

// TimeLayout is the Session Date format.
const TimeLayout = "2006-01-02 15:04:05"

var separator = strings.Repeat("=", 70)

// Entry is one session block.
type Entry struct {
	Timestamp         time.Time `json:"timestamp"`
	NewTests          int64     `json:"new_tests"`
	TotalUnique       int64     `json:"total_unique"`
	LongestSteps      int64     `json:"longest_steps"`
	LongestValue      *big.Int  `json:"longest_value"`
	HighestPeak       *big.Int  `json:"highest_peak"`
	HighestPeakSource *big.Int  `json:"highest_peak_source"`
	AverageSteps      float64   `json:"average_steps"`
}

// FromSummary builds the block for a finished session, stamped at.
func FromSummary(s *session.Summary, at time.Time) Entry {
	return Entry{
		Timestamp:         at,
		NewTests:          s.NewTests,
		TotalUnique:       s.FinalCount,
		LongestSteps:      s.AllTime.LongestSequenceSteps,
		LongestValue:      orZero(s.AllTime.LongestSequenceValue),
		HighestPeak:       orZero(s.AllTime.HighestPeakValue),
		HighestPeakSource: orZero(s.AllTime.HighestPeakSourceValue),
		AverageSteps:      s.AverageSteps(),
	}
}

// Write writes one block to w.
func Write(w io.Writer, e Entry) error {
	var b strings.Builder
	b.WriteString(separator + "\n")
	fmt.Fprintf(&b, "Session Date: %s\n", e.Timestamp.Format(TimeLayout))
	fmt.Fprintf(&b, "Numbers tested this session: %s\n", humanize.Comma(e.NewTests))
	fmt.Fprintf(&b, "Total unique numbers tested: %s\n", humanize.Comma(e.TotalUnique))
	fmt.Fprintf(&b, "Longest sequence: %s steps (number: %s)\n",
		humanize.Comma(e.LongestSteps), bigComma(e.LongestValue))
	fmt.Fprintf(&b, "Highest peak: %s (from: %s)\n",
		bigComma(e.HighestPeak), bigComma(e.HighestPeakSource))
	fmt.Fprintf(&b, "Average steps: %.2f\n", e.AverageSteps)
	b.WriteString(separator + "\n\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// Append adds one block to the log at path, creating it if needed.
func Append(path string, e Entry) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open session log: %w", err)
	}
	if err := Write(f, e); err != nil {
		f.Close()
		return fmt.Errorf("append session log: %w", err)
	}
	return f.Close()
}

// ReadFile parses the log at path. A missing file is an empty log.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open session log: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

var (
	reDate     = regexp.MustCompile(`^Session Date: (.+)$`)
	reTested   = regexp.MustCompile(`^Numbers tested this session: ([0-9,]+)$`)
	reUnique   = regexp.MustCompile(`^Total unique numbers tested: ([0-9,]+)$`)
	reLongest  = regexp.MustCompile(`^Longest sequence: ([0-9,]+) steps \(number: ([0-9,]+)\)$`)
	rePeak     = regexp.MustCompile(`^Highest peak: ([0-9,]+) \(from: ([0-9,]+)\)$`)
	reAverage  = regexp.MustCompile(`^Average steps: ([0-9.]+)$`)
	fieldLines = []*regexp.Regexp{reDate, reTested, reUnique, reLongest, rePeak, reAverage}
)

// Parse reads every block from r, in file order.
func Parse(r io.Reader) ([]Entry, error) {
	sc := bufio.NewScanner(r)
	var (
		entries []Entry
		block   []string
		lineNo  int
		inBlock bool
		start   int
	)

	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")

		switch {
		case line == separator && !inBlock:
			inBlock = true
			start = lineNo
			block = block[:0]
		case line == separator:
			e, err := parseBlock(block)
			if err != nil {
				return entries, fmt.Errorf("session log block at line %d: %w", start, err)
			}
			entries = append(entries, e)
			inBlock = false
		case inBlock:
			block = append(block, line)
		case strings.TrimSpace(line) == "":
		default:
			return entries, fmt.Errorf("session log line %d: unexpected %q", lineNo, line)
		}
	}
	if err := sc.Err(); err != nil {
		return entries, fmt.Errorf("read session log: %w", err)
	}
	if inBlock {
		return entries, fmt.Errorf("session log block at line %d: missing closing separator", start)
	}
	return entries, nil
}

func parseBlock(lines []string) (Entry, error) {
	if len(lines) != len(fieldLines) {
		return Entry{}, fmt.Errorf("expected %d lines, got %d", len(fieldLines), len(lines))
	}

	m := make([][]string, len(lines))
	for i, re := range fieldLines {
		m[i] = re.FindStringSubmatch(lines[i])
		if m[i] == nil {
			return Entry{}, fmt.Errorf("malformed line %q", lines[i])
		}
	}

	var (
		e   Entry
		err error
	)
	if e.Timestamp, err = time.ParseInLocation(TimeLayout, m[0][1], time.Local); err != nil {
		return Entry{}, err
	}
	if e.NewTests, err = parseInt(m[1][1]); err != nil {
		return Entry{}, err
	}
	if e.TotalUnique, err = parseInt(m[2][1]); err != nil {
		return Entry{}, err
	}
	if e.LongestSteps, err = parseInt(m[3][1]); err != nil {
		return Entry{}, err
	}
	if e.LongestValue, err = parseBig(m[3][2]); err != nil {
		return Entry{}, err
	}
	if e.HighestPeak, err = parseBig(m[4][1]); err != nil {
		return Entry{}, err
	}
	if e.HighestPeakSource, err = parseBig(m[4][2]); err != nil {
		return Entry{}, err
	}
	if e.AverageSteps, err = strconv.ParseFloat(m[5][1], 64); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func parseInt(s string) (int64, error) {
	return strconv.ParseInt(strings.ReplaceAll(s, ",", ""), 10, 64)
}

func parseBig(s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(strings.ReplaceAll(s, ",", ""), 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	return n, nil
}

// bigComma groups the digits of n. humanize.BigComma divides its argument
// in place, so it only ever sees a copy.
func bigComma(n *big.Int) string {
	return humanize.BigComma(new(big.Int).Set(orZero(n)))
}

func orZero(n *big.Int) *big.Int {
	if n == nil {
		return new(big.Int)
	}
	return n
}
