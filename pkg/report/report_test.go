package report

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/bwann/qparse/pkg/modem"
	"github.com/bwann/qparse/pkg/session"
)

func sampleStore() (*session.Store, session.RunStats) {
	store := session.NewStore()

	bps := 26400
	cps := 3150
	base := time.Date(1995, time.March, 15, 14, 0, 0, 0, time.UTC)

	store.Save(&session.CallRecord{
		StartQmodem:      base,
		StartDial:        base.Add(5 * time.Second),
		ConnectTime:      base.Add(25 * time.Second),
		StartDownload:    base.Add(40 * time.Second),
		EndDownload:      base.Add(100 * time.Second),
		EndCall:          base.Add(110 * time.Second),
		ExitQmodem:       base.Add(120 * time.Second),
		Connected:        session.OutcomeSuccess,
		RemoteConnectBPS: &bps,
		DownloadSuccess:  session.OutcomeSuccess,
		DownloadCPS:      &cps,
		ATI6: modem.Block{
			"speed": modem.Value{Number: 24000, Numeric: true},
		},
		ATI11: modem.Block{
			"roundtrip_delay": modem.Value{Number: 14, Numeric: true},
		},
	})

	store.Save(&session.CallRecord{
		StartQmodem: base.Add(10 * time.Minute),
		StartDial:   base.Add(10*time.Minute + 5*time.Second),
		AbortedTime: base.Add(10*time.Minute + 45*time.Second),
		AbortReason: "NO CARRIER",
		ExitQmodem:  base.Add(10*time.Minute + 50*time.Second),
	})

	stats := session.RunStats{
		Attempts:          2,
		Connected:         1,
		DownloadSuccesses: 1,
	}
	return store, stats
}

func sampleMetadata() Metadata {
	return Metadata{
		Sources:    []string{"test.cap"},
		Connection: "modem",
		ScannedAt:  time.Now(),
		Percentile: 95,
	}
}

func TestBuild(t *testing.T) {
	store, stats := sampleStore()
	rep := Build(store, stats, sampleMetadata())

	if len(rep.Calls) != 2 {
		t.Fatalf("expected 2 call summaries, got %d", len(rep.Calls))
	}

	good := rep.Calls[0]
	if good.ConnectBPS == nil || *good.ConnectBPS != 26400 {
		t.Errorf("expected connect bps 26400, got %v", good.ConnectBPS)
	}
	if good.HandshakeSec == nil || *good.HandshakeSec != 20 {
		t.Errorf("expected handshake 20s, got %v", good.HandshakeSec)
	}
	if good.DownloadSec == nil || *good.DownloadSec != 60 {
		t.Errorf("expected download 60s, got %v", good.DownloadSec)
	}
	if good.EndingBPS == nil || *good.EndingBPS != 24000 {
		t.Errorf("expected ending bps from ATI6, got %v", good.EndingBPS)
	}
	if good.RoundtripDelay == nil || *good.RoundtripDelay != 14 {
		t.Errorf("expected roundtrip from ATI11, got %v", good.RoundtripDelay)
	}
	if good.Termination != "normal" {
		t.Errorf("expected normal termination, got %q", good.Termination)
	}

	bad := rep.Calls[1]
	if bad.ConnectBPS != nil {
		t.Error("expected no connect bps for the failed call")
	}
	if bad.HandshakeSec != nil {
		t.Error("expected no handshake time when carrier never came up")
	}
	if bad.AbortReason != "NO CARRIER" {
		t.Errorf("expected abort reason, got %q", bad.AbortReason)
	}

	agg := rep.Aggregates
	if agg.Calls != 2 || agg.ConnectAttempts != 2 || agg.ConnectSuccesses != 1 {
		t.Errorf("unexpected aggregates: %+v", agg)
	}
	if agg.ConnectSuccessPct != 50 {
		t.Errorf("expected 50%% connect success, got %.2f", agg.ConnectSuccessPct)
	}
	if agg.NormalTerminations != 1 || agg.AbortedOrLost != 1 {
		t.Errorf("unexpected termination counts: %+v", agg)
	}

	// One record contributed to each metric; the failed call is skipped, not
	// counted as zero
	if agg.ConnectBPS == nil || agg.ConnectBPS.Count != 1 || agg.ConnectBPS.Avg != 26400 {
		t.Errorf("unexpected connect bps metric: %+v", agg.ConnectBPS)
	}
	if agg.HandshakeSec == nil || agg.HandshakeSec.Count != 1 {
		t.Errorf("unexpected handshake metric: %+v", agg.HandshakeSec)
	}
}

func TestBuild_EmptyRun(t *testing.T) {
	rep := Build(session.NewStore(), session.RunStats{}, sampleMetadata())

	if len(rep.Calls) != 0 {
		t.Errorf("expected no calls, got %d", len(rep.Calls))
	}
	if rep.Aggregates.ConnectBPS != nil {
		t.Error("expected nil metric for empty run")
	}
	if rep.Aggregates.ConnectSuccessPct != 0 {
		t.Error("expected 0%% on empty run, not a division blowup")
	}
}

func TestTextFormatter(t *testing.T) {
	store, stats := sampleStore()
	rep := Build(store, stats, sampleMetadata())

	var buf bytes.Buffer
	f := NewTextFormatter(FormatOptions{})
	if err := f.Format(context.Background(), rep, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "Total calls: 2") {
		t.Errorf("missing total calls line:\n%s", out)
	}
	if !strings.Contains(out, "26400") {
		t.Errorf("missing connect bps in call table:\n%s", out)
	}
	if !strings.Contains(out, "ABORTED after 40 sec.") {
		// Aborted before carrier: no duration available
		if !strings.Contains(out, "ABORTED") {
			t.Errorf("missing aborted termination:\n%s", out)
		}
	}
	if !strings.Contains(out, "success: 50.00%") {
		t.Errorf("missing connect success percentage:\n%s", out)
	}
	if !strings.Contains(out, "p95=") {
		t.Errorf("missing percentile column:\n%s", out)
	}
}

func TestTextFormatter_EmptyMetricsRenderNA(t *testing.T) {
	rep := Build(session.NewStore(), session.RunStats{}, sampleMetadata())

	var buf bytes.Buffer
	f := NewTextFormatter(FormatOptions{})
	if err := f.Format(context.Background(), rep, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(buf.String(), "N/A") {
		t.Errorf("expected N/A for empty metrics:\n%s", buf.String())
	}
}

func TestTextFormatter_Verbose(t *testing.T) {
	store, stats := sampleStore()
	rep := Build(store, stats, sampleMetadata())

	var buf bytes.Buffer
	f := NewTextFormatter(FormatOptions{Verbose: true})
	if err := f.Format(context.Background(), rep, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "abort reason: NO CARRIER") {
		t.Errorf("expected abort reason in verbose output:\n%s", out)
	}
	if !strings.Contains(out, "Sources: test.cap") {
		t.Errorf("expected sources in verbose output:\n%s", out)
	}
}

func TestJSONFormatter(t *testing.T) {
	store, stats := sampleStore()
	rep := Build(store, stats, sampleMetadata())

	var buf bytes.Buffer
	f := NewJSONFormatter(FormatOptions{})
	if err := f.Format(context.Background(), rep, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for _, key := range []string{"calls", "aggregates", "metadata"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("missing %q in JSON output", key)
		}
	}
}

func TestJSONFormatter_Quiet(t *testing.T) {
	store, stats := sampleStore()
	rep := Build(store, stats, sampleMetadata())

	var buf bytes.Buffer
	f := NewJSONFormatter(FormatOptions{Quiet: true})
	if err := f.Format(context.Background(), rep, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, ok := decoded["metadata"]; ok {
		t.Error("quiet output should carry aggregates only")
	}
	if _, ok := decoded["connect_attempts"]; !ok {
		t.Error("quiet output should still carry the aggregates")
	}
}
