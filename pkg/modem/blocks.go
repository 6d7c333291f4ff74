// Package modem parses the delimited diagnostic blocks a modem prints after a
// call: ATI6 (call statistics) and ATI11 (line quality). Field labels are
// matched exactly against a fixed table per block kind; anything the table
// doesn't know is dropped, so newer modem firmware with extra fields parses
// cleanly.
package modem

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Kind identifies a diagnostic block type.
type Kind string

const (
	KindATI6  Kind = "ati6"
	KindATI11 Kind = "ati11"

	// KindATY11 and KindATV1 blocks are delimited by the capture script but
	// carry no field table yet; their contents are collected and discarded.
	KindATY11 Kind = "aty11"
	KindATV1  Kind = "atv1"
)

// Value is one parsed field: an integer when the raw value is all digits,
// otherwise the trimmed string.
type Value struct {
	Number  int
	Text    string
	Numeric bool
}

// MarshalJSON emits the integer for numeric values and the string otherwise.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.Numeric {
		return json.Marshal(v.Number)
	}
	return json.Marshal(v.Text)
}

// Block maps known field identifiers to parsed values. Fields absent from the
// raw block are absent from the map, never zero-filled.
type Block map[string]Value

// Int returns the numeric value for key, if present and numeric.
func (b Block) Int(key string) (int, bool) {
	v, ok := b[key]
	if !ok || !v.Numeric {
		return 0, false
	}
	return v.Number, true
}

// String returns the value for key rendered as a string.
func (b Block) String(key string) (string, bool) {
	v, ok := b[key]
	if !ok {
		return "", false
	}
	if v.Numeric {
		return strconv.Itoa(v.Number), true
	}
	return v.Text, true
}

// Field labels as the modem prints them, mapped to stable identifiers.
// The ATI11 table carries both spellings of the roundtrip delay label; which
// one appears depends on firmware revision.
var fieldTables = map[Kind]map[string]string{
	KindATI6: {
		"Chars sent":           "chars_tx",
		"Chars Received":       "chars_rx",
		"Chars lost":           "chars_lost",
		"Octets sent":          "octets_tx",
		"Octets Received":      "octets_rx",
		"Blocks sent":          "blocks_tx",
		"Blocks Received":      "blocks_rx",
		"Blocks resent":        "blocks_resent",
		"Retrains Requested":   "retr_req",
		"Retrains Granted":     "retr_granted",
		"Line Reversals":       "line_reversals",
		"Blers":                "blers",
		"Link Timeouts":        "link_timeouts",
		"Link Naks":            "link_naks",
		"Data Compression":     "data_compression",
		"Equalization":         "equalization",
		"Fallback":             "fallback",
		"Protocol":             "protocol",
		"Speed":                "speed",
		"Last Call":            "last_call",
		"Disconnect Reason is": "disconnect_reason",
	},
	KindATI11: {
		"Modulation":              "modulation",
		"Carrier Freq ( Hz )":     "carrier_freq",
		"Symbol Rate":             "symbol_rate",
		"Trellis Code":            "trellis_code",
		"Nonlinear Encoding":      "nonlinear_encoding",
		"Precoding":               "precoding",
		"Shaping":                 "shaping",
		"Preemphasis Index":       "preemphasis_index",
		"Recv/Xmit Level (-dBm)":  "recv_xmit_level",
		"SNR             ( dB )":  "snr",
		"Near Echo Loss  ( dB )":  "near_echo_loss",
		"Far Echo Loss   ( dB )":  "far_echo_loss",
		"Roundtrip Delay (msec)":  "roundtrip_delay",
		"Round Trip Delay (msec)": "roundtrip_delay",
		"Timing Offset   ( ppm)":  "timing_offset",
		"Carrier Offset  ( ppm)":  "carrier_offset",
		"RX Upshifts":             "rx_upshifts",
		"RX Downshifts":           "rx_downshifts",
		"TX Speedshifts":          "tx_speedshifts",
		"x2 Status":               "x2_status",
	},
}

// Block line shapes, tried in order, first match wins. Labels are non-greedy
// so a line carrying two label/number columns splits correctly.
var (
	reVendorBanner = regexp.MustCompile(`^USRobotics`)
	rePairNumbers  = regexp.MustCompile(`^(.+?)\s+(\d+)\s+(.+?)\s+(\d+)`)
	reLabelNumber  = regexp.MustCompile(`^(.+?)\s\s+(\d+)`)
	reLabelString  = regexp.MustCompile(`^(.+?)\s\s+(.+)`)
)

// Parse extracts known fields from the accumulated raw lines of one block.
// Blocks without a field table parse to an empty Block.
func Parse(kind Kind, lines []string) Block {
	table := fieldTables[kind]
	block := make(Block)

	for _, line := range lines {
		if reVendorBanner.MatchString(line) {
			continue
		}

		if m := rePairNumbers.FindStringSubmatch(line); m != nil {
			put(block, table, m[1], m[2])
			put(block, table, m[3], m[4])
			continue
		}

		if m := reLabelNumber.FindStringSubmatch(line); m != nil {
			put(block, table, m[1], m[2])
			continue
		}

		if m := reLabelString.FindStringSubmatch(line); m != nil {
			put(block, table, m[1], m[2])
			continue
		}
	}

	return block
}

func put(block Block, table map[string]string, label, raw string) {
	id, ok := table[strings.TrimSpace(label)]
	if !ok {
		return
	}

	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		block[id] = Value{Number: n, Numeric: true}
		return
	}
	block[id] = Value{Text: raw}
}
