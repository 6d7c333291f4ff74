package session

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/bwann/qparse/pkg/modem"
	"github.com/bwann/qparse/pkg/parser"
)

// Machine is the single-pass call session scanner. It consumes capture lines
// in order, maintains the current (unfinalized) record and at most one open
// diagnostic block, and appends finalized records to the store. Strictly
// forward: no lookahead beyond the current line, no backtracking.
type Machine struct {
	connType   ConnectionType
	classifier *parser.Classifier
	store      *Store
	stats      RunStats
	diag       io.Writer

	current    *CallRecord
	inBlock    bool
	blockKind  modem.Kind
	blockLines []string
}

// Option configures a Machine.
type Option func(*Machine)

// WithDiagnostics routes per-line anomaly messages to w. Anomalies never
// abort the scan; a single garbled capture line is not worth losing a run
// of call data over.
func WithDiagnostics(w io.Writer) Option {
	return func(m *Machine) {
		m.diag = w
	}
}

// NewMachine creates a scanner. All records in a run share the connection
// type; the capture itself does not say whether the rig dialed or sat on a
// null modem cable.
func NewMachine(connType ConnectionType, opts ...Option) *Machine {
	m := &Machine{
		connType:   connType,
		classifier: parser.NewClassifier(),
		store:      NewStore(),
		diag:       io.Discard,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run consumes the source to exhaustion and returns the finalized store and
// run counters. A record left open at end of input is saved, covering
// captures that end abruptly without an exit marker.
func (m *Machine) Run(ctx context.Context, source *parser.Source) (*Store, RunStats, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, RunStats{}, ctx.Err()
		default:
		}

		line, err := source.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, RunStats{}, fmt.Errorf("reading capture: %w", err)
		}

		m.HandleLine(line)
	}

	m.Finish()
	return m.store, m.stats, nil
}

// HandleLine classifies one capture line and applies its transition.
func (m *Machine) HandleLine(line *parser.Line) {
	ev, err := m.classifier.Classify(line.Raw)
	if err != nil {
		fmt.Fprintf(m.diag, "%s:%d: skipping malformed marker: %v\n", line.Source, line.LineNum, err)
		return
	}
	m.apply(ev, line)
}

// Finish saves a record left open by a capture that ended without an exit
// marker.
func (m *Machine) Finish() {
	m.finalize()
}

func (m *Machine) apply(ev parser.Event, line *parser.Line) {
	switch ev.Kind {
	case parser.EventNewCall:
		// A start marker while the previous call is still open means that
		// call aborted, crashed, or was restarted without an exit marker.
		// Save what we have and begin fresh. Best-effort inference: nothing
		// in the capture distinguishes this from a corrupted stream.
		if m.current != nil && !m.current.StartQmodem.IsZero() {
			m.finalize()
		}
		m.current = &CallRecord{
			ConnectionType: m.connType,
			StartQmodem:    ev.Timestamp,
			TestSize:       ev.TestSize,
			Protocol:       ev.Protocol,
		}
		m.stats.Attempts++

	case parser.EventAbort:
		// The call keeps being scanned after an abort: the script still
		// captures modem status blocks on the way out.
		if r := m.record(ev, line); r != nil {
			r.AbortedTime = ev.Timestamp
			r.AbortReason = ev.Reason
		}

	case parser.EventStartDial:
		if r := m.record(ev, line); r != nil {
			r.StartDial = ev.Timestamp
		}

	case parser.EventConnected:
		if r := m.record(ev, line); r != nil {
			r.ConnectTime = ev.Timestamp
			r.Connected = OutcomeSuccess
			m.stats.Connected++
		}

	case parser.EventBanner:
		if r := m.record(ev, line); r != nil {
			bps := ev.ConnectBPS
			r.RemoteConnectBPS = &bps
			r.RemoteReliable = ev.Reliable
			r.RemoteANSI = ev.ANSI
		}

	case parser.EventStartDownload:
		if r := m.record(ev, line); r != nil {
			r.StartDownload = ev.Timestamp
		}

	case parser.EventEndDownload:
		if r := m.record(ev, line); r != nil {
			r.EndDownload = ev.Timestamp
		}

	case parser.EventDownloadResult:
		if r := m.record(ev, line); r != nil {
			if ev.Success {
				r.DownloadSuccess = OutcomeSuccess
				m.stats.DownloadSuccesses++
				// CPS is only computed by the protocol on success
				if ev.HasCPS {
					cps := ev.CPS
					r.DownloadCPS = &cps
				}
			} else {
				r.DownloadSuccess = OutcomeFailure
				m.stats.DownloadFailures++
			}
		}

	case parser.EventEndCall:
		if r := m.record(ev, line); r != nil {
			r.EndCall = ev.Timestamp
		}

	case parser.EventBlockBegin:
		m.inBlock = true
		m.blockKind = ev.Block
		m.blockLines = nil

	case parser.EventBlockEnd:
		if !m.inBlock || ev.Block != m.blockKind {
			fmt.Fprintf(m.diag, "%s:%d: stray %s block end ignored\n", line.Source, line.LineNum, ev.Block)
			return
		}
		m.closeBlock(line)

	case parser.EventExit:
		if r := m.record(ev, line); r != nil {
			r.ExitQmodem = ev.Timestamp
			m.finalize()
		}

	case parser.EventNotes:
		// Recognized but not attached to the record yet.

	case parser.EventNone:
		// Marker lines never enter the block buffer; only unclassified lines
		// inside an open block are captured.
		if m.inBlock {
			m.blockLines = append(m.blockLines, strings.TrimSpace(line.Raw))
		}
	}
}

// record returns the current record, logging a diagnostic and returning nil
// when a call-scoped event arrives with no call open. That indicates a
// truncated or corrupted capture; the event is dropped and the scan goes on.
func (m *Machine) record(ev parser.Event, line *parser.Line) *CallRecord {
	if m.current == nil {
		fmt.Fprintf(m.diag, "%s:%d: %s before any start_qmodem, ignored\n", line.Source, line.LineNum, ev.Kind)
	}
	return m.current
}

func (m *Machine) closeBlock(line *parser.Line) {
	kind := m.blockKind
	lines := m.blockLines
	m.inBlock = false
	m.blockLines = nil

	if m.current == nil {
		fmt.Fprintf(m.diag, "%s:%d: %s block outside any call, discarded\n", line.Source, line.LineNum, kind)
		return
	}

	switch kind {
	case modem.KindATI6:
		m.current.ATI6 = modem.Parse(kind, lines)
	case modem.KindATI11:
		m.current.ATI11 = modem.Parse(kind, lines)
	default:
		// aty11 and at&v1 blocks have no field table yet; contents dropped.
	}
}

// finalize appends the current record to the store and detaches it. A
// finalized record is never touched again.
func (m *Machine) finalize() {
	if m.current == nil {
		return
	}
	m.store.Save(m.current)
	m.current = nil
}
