package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bwann/qparse/pkg/modem"
)

// EventKind identifies which marker a capture line carries.
type EventKind int

const (
	// EventNone marks a line with no recognized marker. Such lines are inert
	// unless a diagnostic block is open, in which case they are its contents.
	EventNone EventKind = iota
	EventNewCall
	EventAbort
	EventStartDial
	EventConnected
	EventBanner
	EventStartDownload
	EventEndDownload
	EventDownloadResult
	EventEndCall
	EventBlockBegin
	EventBlockEnd
	EventExit
	EventNotes
)

var eventNames = map[EventKind]string{
	EventNone:           "none",
	EventNewCall:        "start_qmodem",
	EventAbort:          "aborting",
	EventStartDial:      "start_dial",
	EventConnected:      "connected",
	EventBanner:         "banner",
	EventStartDownload:  "start_download",
	EventEndDownload:    "end_download",
	EventDownloadResult: "download_result",
	EventEndCall:        "end_call",
	EventBlockBegin:     "block_begin",
	EventBlockEnd:       "block_end",
	EventExit:           "exit_qmodem",
	EventNotes:          "notes",
}

func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return "unknown"
}

// Event is one classified capture line.
type Event struct {
	Kind      EventKind
	Timestamp time.Time

	// NewCall
	TestSize string
	Protocol string

	// Abort
	Reason string

	// Banner
	ConnectBPS int
	Reliable   bool
	ANSI       bool

	// DownloadResult
	Success bool
	CPS     int
	HasCPS  bool

	// BlockBegin / BlockEnd
	Block modem.Kind

	// Notes
	Notes string
}

const tsPattern = `(\d{2}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})`

// Line noise and half-drawn terminal output routinely precede the markers the
// remote side echoes back, so most patterns are searched anywhere in the line.
// The end-call, block, and exit markers come straight from the control script
// and anchor at the start of the line.
var (
	reNewCall       = regexp.MustCompile(`#### start_qmodem (?:testsize:(\S+)\sproto:(\S+)\s)?` + tsPattern)
	reAbort         = regexp.MustCompile(`### aborting ` + tsPattern + `(?:,\s|\s-\s)(.*)`)
	reStartDial     = regexp.MustCompile(`#### start_dial ` + tsPattern)
	reConnected     = regexp.MustCompile(`#### connected ` + tsPattern)
	reBanner        = regexp.MustCompile(`Connected at (\d+) bps\.(Reliable connection\.\s+)?(ANSI detected\.)?`)
	reStartDownload = regexp.MustCompile(`### start_download ` + tsPattern)
	reEndDownload   = regexp.MustCompile(`### end_download ` + tsPattern)
	reDownload      = regexp.MustCompile(`\S+\s+-\s+(SUCCESSFUL!|UNSUCCESSFUL\.)(?:\s+CPS = (\S+))?`)
	reEndCall       = regexp.MustCompile(`^#### end_call ` + tsPattern)
	reBlockMarker   = regexp.MustCompile(`^### (end_)?stats_(ati6|ati11|aty11|at&v1)`)
	reExit          = regexp.MustCompile(`^#### exit_qmodem ` + tsPattern)
	reNotes         = regexp.MustCompile(`# Notes: (.*)`)
)

var blockKinds = map[string]modem.Kind{
	"ati6":  modem.KindATI6,
	"ati11": modem.KindATI11,
	"aty11": modem.KindATY11,
	"at&v1": modem.KindATV1,
}

// Classifier matches capture lines against the fixed marker catalog. Patterns
// are tried in a fixed order and the first action match wins.
type Classifier struct{}

// NewClassifier creates a classifier for the marker catalog.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify matches one line. An error means the line carried a marker whose
// timestamp did not parse; the line should be skipped with a diagnostic.
func (c *Classifier) Classify(line string) (Event, error) {
	if m := reNewCall.FindStringSubmatch(line); m != nil {
		ts, err := ParseTimestamp(m[3])
		if err != nil {
			return Event{}, err
		}
		return Event{Kind: EventNewCall, TestSize: m[1], Protocol: m[2], Timestamp: ts}, nil
	}

	if m := reAbort.FindStringSubmatch(line); m != nil {
		ts, err := ParseTimestamp(m[1])
		if err != nil {
			return Event{}, err
		}
		return Event{Kind: EventAbort, Timestamp: ts, Reason: m[2]}, nil
	}

	if m := reStartDial.FindStringSubmatch(line); m != nil {
		return timestampEvent(EventStartDial, m[1])
	}

	if m := reConnected.FindStringSubmatch(line); m != nil {
		return timestampEvent(EventConnected, m[1])
	}

	// Qmodem doesn't show the initial CONNECT speed when dialing from the
	// directory, but Wildcat prints it right before the login prompt.
	if m := reBanner.FindStringSubmatch(line); m != nil {
		bps, err := strconv.Atoi(m[1])
		if err != nil {
			return Event{}, err
		}
		return Event{
			Kind:       EventBanner,
			ConnectBPS: bps,
			Reliable:   m[2] != "",
			ANSI:       m[3] != "",
		}, nil
	}

	if m := reStartDownload.FindStringSubmatch(line); m != nil {
		return timestampEvent(EventStartDownload, m[1])
	}

	if m := reEndDownload.FindStringSubmatch(line); m != nil {
		return timestampEvent(EventEndDownload, m[1])
	}

	if m := reDownload.FindStringSubmatch(line); m != nil {
		ev := Event{Kind: EventDownloadResult, Success: m[1] == "SUCCESSFUL!"}
		if m[2] != "" {
			// Qmodem prints CPS with thousands separators
			if cps, err := strconv.Atoi(strings.ReplaceAll(m[2], ",", "")); err == nil {
				ev.CPS = cps
				ev.HasCPS = true
			}
		}
		return ev, nil
	}

	if m := reEndCall.FindStringSubmatch(line); m != nil {
		return timestampEvent(EventEndCall, m[1])
	}

	if m := reBlockMarker.FindStringSubmatch(line); m != nil {
		kind := EventBlockBegin
		if m[1] != "" {
			kind = EventBlockEnd
		}
		return Event{Kind: kind, Block: blockKinds[m[2]]}, nil
	}

	if m := reExit.FindStringSubmatch(line); m != nil {
		return timestampEvent(EventExit, m[1])
	}

	if m := reNotes.FindStringSubmatch(line); m != nil {
		return Event{Kind: EventNotes, Notes: m[1]}, nil
	}

	return Event{Kind: EventNone}, nil
}

func timestampEvent(kind EventKind, raw string) (Event, error) {
	ts, err := ParseTimestamp(raw)
	if err != nil {
		return Event{}, err
	}
	return Event{Kind: kind, Timestamp: ts}, nil
}
