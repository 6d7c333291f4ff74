package report

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// TextFormatter renders the per-call table and aggregate summary block.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// Format renders the report as text.
func (f *TextFormatter) Format(ctx context.Context, rep *Report, w io.Writer) error {
	if !f.opts.Quiet {
		f.writeCalls(rep, w)
	}
	f.writeAggregates(rep, w)

	if f.opts.Verbose {
		fmt.Fprintf(w, "Sources: %s\n", strings.Join(rep.Metadata.Sources, ", "))
		fmt.Fprintf(w, "Connection: %s\n", rep.Metadata.Connection)
	}
	return nil
}

func (f *TextFormatter) writeCalls(rep *Report, w io.Writer) {
	fmt.Fprintf(w, "%-19s  %6s  %3s  %-7s  %6s  %4s  %6s  %-16s  %5s  %5s  %-7s  %5s  %s\n",
		"start", "bps", "hs", "dl", "cps", "sec", "speed", "protocol", "rtrip", "call", "retr", "blers", "termination")

	for i := range rep.Calls {
		c := &rep.Calls[i]
		fmt.Fprintf(w, "%s  %6s  %3s  %-7s  %6s  %4s  %6s  %-16s  %5s  %5s  %3s/%-3s  %5s  %s\n",
			c.StartQmodem.Format("2006-01-02 15:04:05"),
			optInt(c.ConnectBPS),
			optInt(c.HandshakeSec),
			optStr(c.DownloadStatus),
			optInt(c.DownloadCPS),
			optInt(c.DownloadSec),
			optInt(c.EndingBPS),
			optStr(c.LinkProtocol),
			optInt(c.RoundtripDelay),
			optInt(c.CallSec),
			optInt(c.RetrainsReq),
			optInt(c.RetrainsGranted),
			optInt(c.Blers),
			c.Termination)

		if f.opts.Verbose && c.AbortReason != "" {
			fmt.Fprintf(w, "    abort reason: %s\n", c.AbortReason)
		}
	}
	fmt.Fprintln(w)
}

func (f *TextFormatter) writeAggregates(rep *Report, w io.Writer) {
	a := rep.Aggregates

	fmt.Fprintf(w, "Total calls: %d\n", a.Calls)
	fmt.Fprintf(w, "Connect attempt / success / failures: %d / %d / %d, success: %.2f%%\n",
		a.ConnectAttempts, a.ConnectSuccesses, a.ConnectFailures, a.ConnectSuccessPct)
	fmt.Fprintf(w, "Download success/failures: %d / %d, success: %.2f%%\n",
		a.DownloadSuccesses, a.DownloadFailures, a.DownloadSuccessPct)
	fmt.Fprintf(w, "Termination reasons: %d normal goodbye, %d aborted/lost\n",
		a.NormalTerminations, a.AbortedOrLost)

	p := rep.Metadata.Percentile
	writeMetric(w, "Initial connect BPS", a.ConnectBPS, p)
	writeMetric(w, "Ending connect BPS", a.EndingBPS, p)
	writeMetric(w, "Time to connect", a.HandshakeSec, p)
	writeMetric(w, "Download CPS", a.DownloadCPS, p)
	writeMetric(w, "Call duration", a.CallSec, p)
	writeMetric(w, "Roundtrip delay", a.RoundtripDelay, p)
}

func writeMetric(w io.Writer, name string, m *Metric, p int) {
	if m == nil {
		fmt.Fprintf(w, "%-20s: N/A\n", name)
		return
	}
	fmt.Fprintf(w, "%-20s: avg=%5d  min=%5d  max=%5d  p%d=%5d\n",
		name, m.Avg, m.Min, m.Max, p, m.Percentile)
}

// optInt renders an optional value, "-" when absent.
func optInt(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func optStr(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
