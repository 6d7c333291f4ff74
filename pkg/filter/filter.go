// Package filter compiles display filters over call records using expr.
package filter

import (
	"fmt"

	"github.com/expr-lang/expr"

	"github.com/bwann/qparse/pkg/session"
)

// Env exposes call record fields to filter expressions. Absent numeric fields
// read as -1 so `field >= 0` tests presence without conflating absence with a
// real zero.
type Env struct {
	Connected       bool   `expr:"connected"`
	ConnectBPS      int    `expr:"connect_bps"`
	Reliable        bool   `expr:"reliable"`
	ANSI            bool   `expr:"ansi"`
	DownloadSuccess bool   `expr:"download_success"`
	DownloadCPS     int    `expr:"download_cps"`
	HandshakeSec    int    `expr:"handshake_sec"`
	CallSec         int    `expr:"call_sec"`
	Speed           int    `expr:"speed"`
	RoundtripDelay  int    `expr:"roundtrip_delay"`
	Aborted         bool   `expr:"aborted"`
	Termination     string `expr:"termination"`
	DirectSerial    bool   `expr:"direct_serial"`
	LinkProtocol    string `expr:"protocol"`
}

// Compile builds a predicate from a filter expression like
// "connect_bps >= 26400 && download_success". A record that fails to
// evaluate is excluded.
func Compile(src string) (func(*session.CallRecord) bool, error) {
	program, err := expr.Compile(src, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compiling filter %q: %w", src, err)
	}

	return func(r *session.CallRecord) bool {
		out, err := expr.Run(program, recordEnv(r))
		if err != nil {
			return false
		}
		b, ok := out.(bool)
		return ok && b
	}, nil
}

func recordEnv(r *session.CallRecord) Env {
	env := Env{
		Connected:       r.Connected == session.OutcomeSuccess,
		Reliable:        r.RemoteReliable,
		ANSI:            r.RemoteANSI,
		DownloadSuccess: r.DownloadSuccess == session.OutcomeSuccess,
		Aborted:         !r.AbortedTime.IsZero(),
		Termination:     r.Termination(),
		DirectSerial:    r.ConnectionType == session.DirectSerial,
		ConnectBPS:      -1,
		DownloadCPS:     -1,
		HandshakeSec:    -1,
		CallSec:         -1,
		Speed:           -1,
		RoundtripDelay:  -1,
	}

	if r.RemoteConnectBPS != nil {
		env.ConnectBPS = *r.RemoteConnectBPS
	}
	if r.DownloadCPS != nil {
		env.DownloadCPS = *r.DownloadCPS
	}
	if v, ok := r.HandshakeSeconds(); ok {
		env.HandshakeSec = v
	}
	if v, ok := r.CallSeconds(); ok {
		env.CallSec = v
	}
	if v, ok := r.ATI6.Int("speed"); ok {
		env.Speed = v
	}
	if v, ok := r.ATI6.String("protocol"); ok {
		env.LinkProtocol = v
	}
	if v, ok := r.ATI11.Int("roundtrip_delay"); ok {
		env.RoundtripDelay = v
	}

	return env
}
