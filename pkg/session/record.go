// Package session reconstructs call records from a capture stream. The
// Machine is the single-pass scanner; the Store holds finalized records;
// RunStats carries the run-wide counters.
package session

import (
	"fmt"
	"time"

	"github.com/bwann/qparse/pkg/modem"
)

// ConnectionType distinguishes dial-up modem calls from direct serial (null
// modem) links. Fixed when the record is created, never changed.
type ConnectionType int

const (
	Modem ConnectionType = iota
	DirectSerial
)

func (t ConnectionType) String() string {
	if t == DirectSerial {
		return "direct_serial"
	}
	return "modem"
}

// Outcome is a three-valued result: not yet known, success, or failure.
// "Unknown" and "failure" are distinct: a call whose stream ended before the
// download result is unknown, not failed.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeSuccess
	OutcomeFailure
)

// CallRecord is one attempted connection-and-download cycle. Timestamp fields
// are the zero time when the call never reached that phase; absence is
// meaningful throughout.
type CallRecord struct {
	ConnectionType ConnectionType

	StartQmodem   time.Time
	StartDial     time.Time
	ConnectTime   time.Time
	StartDownload time.Time
	EndDownload   time.Time
	EndCall       time.Time
	ExitQmodem    time.Time
	AbortedTime   time.Time

	// From the start_qmodem marker, when the script was configured to log them.
	TestSize string
	Protocol string

	Connected        Outcome
	RemoteConnectBPS *int
	RemoteReliable   bool
	RemoteANSI       bool

	DownloadSuccess Outcome
	DownloadCPS     *int

	AbortReason string

	// Post-call modem diagnostics, nil when the block never appeared.
	ATI6  modem.Block
	ATI11 modem.Block
}

// HandshakeSeconds is the modem negotiation time from dial start to carrier.
// Direct serial links have no handshake and report zero.
func (r *CallRecord) HandshakeSeconds() (int, bool) {
	if r.ConnectionType == DirectSerial {
		return 0, true
	}
	if r.StartDial.IsZero() || r.ConnectTime.IsZero() {
		return 0, false
	}
	return seconds(r.StartDial, r.ConnectTime), true
}

// DownloadSeconds is the test download duration, only meaningful when the
// download succeeded.
func (r *CallRecord) DownloadSeconds() (int, bool) {
	if r.DownloadSuccess != OutcomeSuccess {
		return 0, false
	}
	if r.StartDownload.IsZero() || r.EndDownload.IsZero() {
		return 0, false
	}
	return seconds(r.StartDownload, r.EndDownload), true
}

// CallSeconds is the total call duration. Direct serial connections have no
// dialing, so the whole Qmodem session counts. For modem calls the end point
// is, in priority order: the clean end-call marker, the abort time, or the
// Qmodem exit time when the script died mid-call.
func (r *CallRecord) CallSeconds() (int, bool) {
	if r.ConnectionType == DirectSerial {
		if r.StartQmodem.IsZero() || r.ExitQmodem.IsZero() {
			return 0, false
		}
		return seconds(r.StartQmodem, r.ExitQmodem), true
	}

	if r.ConnectTime.IsZero() {
		return 0, false
	}
	switch {
	case !r.EndCall.IsZero():
		return seconds(r.ConnectTime, r.EndCall), true
	case !r.AbortedTime.IsZero():
		return seconds(r.ConnectTime, r.AbortedTime), true
	case !r.ExitQmodem.IsZero():
		return seconds(r.ConnectTime, r.ExitQmodem), true
	}
	return 0, false
}

// Termination classifies how the call ended.
func (r *CallRecord) Termination() string {
	if !r.AbortedTime.IsZero() {
		if r.ConnectTime.IsZero() {
			// Aborted before carrier, nothing to measure against
			return "ABORTED"
		}
		return fmt.Sprintf("ABORTED after %d sec.", seconds(r.ConnectTime, r.AbortedTime))
	}
	if !r.EndCall.IsZero() {
		return "normal"
	}
	return "unknown"
}

// DownloadStatus renders the download outcome, empty when unknown.
func (r *CallRecord) DownloadStatus() string {
	switch r.DownloadSuccess {
	case OutcomeSuccess:
		return "SUCCESS"
	case OutcomeFailure:
		return "FAILED"
	}
	return ""
}

// seconds is the whole-second difference between two marker timestamps.
// Negative differences propagate as-is; marker timestamps have no sub-second
// precision so there is nothing to round.
func seconds(from, to time.Time) int {
	return int(to.Sub(from) / time.Second)
}
