// Package report derives per-call summaries and aggregate statistics from a
// finished scan.
package report

import (
	"time"

	"github.com/bwann/qparse/pkg/session"
)

// Report is the complete output of one scan.
type Report struct {
	// Calls holds one derived summary per finalized record, in store order.
	Calls []CallSummary `json:"calls"`

	// Aggregates holds the run-wide statistics.
	Aggregates Aggregates `json:"aggregates"`

	// Metadata describes the scan that produced the report.
	Metadata Metadata `json:"metadata"`
}

// CallSummary is the derived reporting row for one call. Pointer fields are
// nil when the underlying data never appeared in the capture.
type CallSummary struct {
	StartQmodem     time.Time `json:"start_qmodem"`
	ConnectBPS      *int      `json:"connect_bps,omitempty"`
	HandshakeSec    *int      `json:"handshake_sec,omitempty"`
	DownloadStatus  string    `json:"download_status,omitempty"`
	DownloadCPS     *int      `json:"download_cps,omitempty"`
	DownloadSec     *int      `json:"download_sec,omitempty"`
	EndingBPS       *int      `json:"ending_bps,omitempty"`
	LinkProtocol    string    `json:"link_protocol,omitempty"`
	RoundtripDelay  *int      `json:"roundtrip_delay,omitempty"`
	CallSec         *int      `json:"call_sec,omitempty"`
	RetrainsReq     *int      `json:"retrains_requested,omitempty"`
	RetrainsGranted *int      `json:"retrains_granted,omitempty"`
	Blers           *int      `json:"blers,omitempty"`
	Termination     string    `json:"termination"`
	AbortReason     string    `json:"abort_reason,omitempty"`
}

// Aggregates are the run-wide statistics. Metric pointers are nil when no
// record contributed a data point.
type Aggregates struct {
	Calls              int     `json:"calls"`
	ConnectAttempts    int     `json:"connect_attempts"`
	ConnectSuccesses   int     `json:"connect_successes"`
	ConnectFailures    int     `json:"connect_failures"`
	ConnectSuccessPct  float64 `json:"connect_success_pct"`
	DownloadSuccesses  int     `json:"download_successes"`
	DownloadFailures   int     `json:"download_failures"`
	DownloadSuccessPct float64 `json:"download_success_pct"`
	NormalTerminations int     `json:"normal_terminations"`
	AbortedOrLost      int     `json:"aborted_or_lost"`

	ConnectBPS     *Metric `json:"connect_bps,omitempty"`
	EndingBPS      *Metric `json:"ending_bps,omitempty"`
	HandshakeSec   *Metric `json:"handshake_sec,omitempty"`
	DownloadCPS    *Metric `json:"download_cps,omitempty"`
	CallSec        *Metric `json:"call_sec,omitempty"`
	RoundtripDelay *Metric `json:"roundtrip_delay,omitempty"`
}

// Metadata describes the scan that produced the report.
type Metadata struct {
	// Sources lists the capture files that were scanned.
	Sources []string `json:"sources"`

	// Connection is the connection semantics applied to every record.
	Connection string `json:"connection"`

	// ScannedAt is when the scan was performed.
	ScannedAt time.Time `json:"scanned_at"`

	// Percentile is the percentile reported in each Metric (default 95).
	Percentile int `json:"percentile"`
}

// Build derives the report from a finished scan.
func Build(store *session.Store, stats session.RunStats, meta Metadata) *Report {
	rep := &Report{Metadata: meta}
	p := meta.Percentile

	for _, rec := range store.All() {
		rep.Calls = append(rep.Calls, summarize(rec))
	}

	agg := Aggregates{
		Calls:              store.Len(),
		ConnectAttempts:    stats.Attempts,
		ConnectSuccesses:   stats.Connected,
		ConnectFailures:    stats.ConnectFailures(),
		ConnectSuccessPct:  stats.ConnectSuccessPercent(),
		DownloadSuccesses:  stats.DownloadSuccesses,
		DownloadFailures:   stats.DownloadFailures,
		DownloadSuccessPct: stats.DownloadSuccessPercent(),
	}

	for _, rec := range store.All() {
		if rec.Termination() == "normal" {
			agg.NormalTerminations++
		} else {
			agg.AbortedOrLost++
		}
	}

	agg.ConnectBPS = Summarize(store.Values(func(r *session.CallRecord) (int, bool) {
		if r.RemoteConnectBPS == nil {
			return 0, false
		}
		return *r.RemoteConnectBPS, true
	}), p)

	agg.EndingBPS = Summarize(store.Values(func(r *session.CallRecord) (int, bool) {
		return r.ATI6.Int("speed")
	}), p)

	agg.HandshakeSec = Summarize(store.Values((*session.CallRecord).HandshakeSeconds), p)

	agg.DownloadCPS = Summarize(store.Values(func(r *session.CallRecord) (int, bool) {
		if r.DownloadCPS == nil {
			return 0, false
		}
		return *r.DownloadCPS, true
	}), p)

	agg.CallSec = Summarize(store.Values((*session.CallRecord).CallSeconds), p)

	agg.RoundtripDelay = Summarize(store.Values(func(r *session.CallRecord) (int, bool) {
		return r.ATI11.Int("roundtrip_delay")
	}), p)

	rep.Aggregates = agg
	return rep
}

func summarize(r *session.CallRecord) CallSummary {
	s := CallSummary{
		StartQmodem:    r.StartQmodem,
		ConnectBPS:     r.RemoteConnectBPS,
		DownloadStatus: r.DownloadStatus(),
		DownloadCPS:    r.DownloadCPS,
		Termination:    r.Termination(),
		AbortReason:    r.AbortReason,
	}

	if v, ok := r.HandshakeSeconds(); ok {
		s.HandshakeSec = intPtr(v)
	}
	if v, ok := r.DownloadSeconds(); ok {
		s.DownloadSec = intPtr(v)
	}
	if v, ok := r.CallSeconds(); ok {
		s.CallSec = intPtr(v)
	}
	if v, ok := r.ATI6.Int("speed"); ok {
		s.EndingBPS = intPtr(v)
	}
	if v, ok := r.ATI6.String("protocol"); ok {
		s.LinkProtocol = v
	}
	if v, ok := r.ATI6.Int("retr_req"); ok {
		s.RetrainsReq = intPtr(v)
	}
	if v, ok := r.ATI6.Int("retr_granted"); ok {
		s.RetrainsGranted = intPtr(v)
	}
	if v, ok := r.ATI6.Int("blers"); ok {
		s.Blers = intPtr(v)
	}
	if v, ok := r.ATI11.Int("roundtrip_delay"); ok {
		s.RoundtripDelay = intPtr(v)
	}

	return s
}

func intPtr(v int) *int {
	return &v
}
