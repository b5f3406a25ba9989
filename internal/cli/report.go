package cli

import (
	"io"
	"math/big"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/dustinober1/3x1-Project/internal/session"
)

var rule = strings.Repeat("=", 70)

// writeReport prints the end-of-session console report.
func writeReport(w io.Writer, s *session.Summary) {
	p := message.NewPrinter(language.English)

	title := "SESSION COMPLETE"
	switch {
	case s.State == session.StateAborted:
		title = "SESSION ABORTED"
	case s.Interrupted:
		title = "SESSION INTERRUPTED"
	}

	p.Fprintf(w, "\n%s\n%s\n%s\n", rule, title, rule)
	p.Fprintf(w, "Session: %s\n\n", s.SessionID)

	p.Fprintf(w, "THIS SESSION:\n")
	p.Fprintf(w, "   New numbers tested: %d\n", s.NewTests)
	p.Fprintf(w, "   Duplicates skipped: %d\n", s.DuplicatesSkipped)
	p.Fprintf(w, "   Generation attempts: %d\n", s.Attempts)
	p.Fprintf(w, "   All numbers reached 1: %t\n", s.AllReachedOne())
	if s.CutoffHits > 0 {
		p.Fprintf(w, "   Stopped at step cutoff: %d\n", s.CutoffHits)
	}
	p.Fprintf(w, "   Session average steps: %.2f\n", s.AverageSteps())
	if s.Shortest != nil {
		p.Fprintf(w, "   Shortest sequence: %s -> %d steps\n", bigComma(s.Shortest.Value), s.Shortest.Steps)
	}
	p.Fprintf(w, "   Execution time: %.2f seconds\n", s.Elapsed.Seconds())
	p.Fprintf(w, "   Testing rate: %.0f numbers/second\n", s.Rate())
	if s.AttemptCapReached {
		p.Fprintf(w, "   Attempt cap reached before the target of %d\n", s.Target)
	}

	p.Fprintf(w, "\nALL-TIME TOTALS:\n")
	p.Fprintf(w, "   Total unique numbers ever tested: %d\n", s.FinalCount)
	p.Fprintf(w, "   Numbers tested before this session: %d\n", s.InitialCount)
	p.Fprintf(w, "   All-time average steps: %.2f\n", s.AllTime.AverageSteps())
	p.Fprintf(w, "   Checkpoints: %d committed, %d failed\n", s.Checkpoints, s.FailedCheckpoints)
	if s.Lost > 0 {
		p.Fprintf(w, "   NOT COMMITTED: %d tested numbers\n", s.Lost)
	}

	at := s.AllTime
	p.Fprintf(w, "\nALL-TIME RECORDS:\n")
	p.Fprintf(w, "   Longest sequence ever: %d steps\n", at.LongestSequenceSteps)
	p.Fprintf(w, "   └─ Number: %s\n", bigComma(at.LongestSequenceValue))
	p.Fprintf(w, "\n   Highest peak ever: %s\n", bigComma(at.HighestPeakValue))
	p.Fprintf(w, "   └─ Number: %s\n", bigComma(at.HighestPeakSourceValue))
	if at.HighestPeakSourceValue != nil && at.HighestPeakSourceValue.Sign() > 0 {
		ratio := session.Entry{Value: at.HighestPeakSourceValue, Peak: at.HighestPeakValue}.PeakRatio()
		p.Fprintf(w, "   └─ Peak is %.0fx the starting number\n", ratio)
	}

	if len(s.TopLongest) > 0 {
		p.Fprintf(w, "\nTHIS SESSION'S TOP %d LONGEST:\n", len(s.TopLongest))
		for i, e := range s.TopLongest {
			line := p.Sprintf("   %2d. %s -> %d steps", i+1, bigComma(e.Value), e.Steps)
			p.Fprintf(w, "%s%s\n", line, recordMarker(s.IsLongestRecord(e)))
		}
	}
	if len(s.TopPeaks) > 0 {
		p.Fprintf(w, "\nTHIS SESSION'S TOP %d HIGHEST PEAKS:\n", len(s.TopPeaks))
		for i, e := range s.TopPeaks {
			line := p.Sprintf("   %2d. %s -> %s (%.0fx)", i+1, bigComma(e.Value), bigComma(e.Peak), e.PeakRatio())
			p.Fprintf(w, "%s%s\n", line, recordMarker(s.IsPeakRecord(e)))
		}
	}
}

func recordMarker(isRecord bool) string {
	if isRecord {
		return " NEW RECORD!"
	}
	return ""
}

// bigComma groups arbitrary-precision integers; the message printer only
// groups machine integers. humanize.BigComma divides its argument in place.
func bigComma(n *big.Int) string {
	if n == nil {
		return "0"
	}
	return humanize.BigComma(new(big.Int).Set(n))
}
