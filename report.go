package relaylog

import "strings"

// ReportLine is one rendered link in an error chain: the message line
// and its backtrace line.
type ReportLine struct {
	Message   string
	Backtrace string
}

// Report is the renderable form of an error chain.
type Report struct {
	Lines  []ReportLine
	Prefix string
}

// String joins the report's lines with newlines.
func (r *Report) String() string {
	var b strings.Builder
	for i, l := range r.Lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(r.Prefix)
		b.WriteString(l.Message)
		if l.Backtrace != "" {
			b.WriteByte('\n')
			b.WriteString(l.Backtrace)
		}
	}
	return b.String()
}

// Render walks err's chain up to depth links (DepthAll for the whole
// chain) and produces a Report: one line per link plus a final
// "...N more causes" line when truncated.
func Render(err *Error, depth int) *Report {
	report := &Report{Prefix: "##mesg## "}
	if err.IsOK() {
		report.Lines = append(report.Lines, ReportLine{Message: err.Message})
		return report
	}

	n := 0
	e := err
	for e.IsKO() {
		if depth != DepthAll && n >= depth {
			remaining := Depth(e)
			report.Lines = append(report.Lines, ReportLine{
				Message: ellipsisMore(remaining),
			})
			return report
		}
		report.Lines = append(report.Lines, ReportLine{
			Message:   e.Message,
			Backtrace: e.backtrace,
		})
		n++
		if e.Cause == nil {
			break
		}
		e = e.Cause
	}
	return report
}

func ellipsisMore(remaining int) string {
	if remaining == 1 {
		return "...1 more cause"
	}
	return "..." + itoa(remaining) + " more causes"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var b [20]byte
	i := len(b)
	for n > 0 {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
	}
	return string(b[i:])
}

// ReportTo renders err and sends each line as a separate record to
// logger at level, with the backtrace line (when present) sent at
// TRACE.
func ReportTo(logger *Logger, level Level, err *Error, depth int) {
	report := Render(err, depth)
	for _, line := range report.Lines {
		logger.Logf(level, "%s", line.Message)
		if line.Backtrace != "" {
			logger.Logf(TRACE, "%s", line.Backtrace)
		}
	}
}
