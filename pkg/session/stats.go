package session

// RunStats are the counters for one whole scan. Success-rate reports are
// defined over the run, not a single call, so these live beside the Store
// rather than on any record. They are accumulated explicitly by the Machine
// and returned from Run — never package state — so scanning two capture sets
// in one process cannot cross-contaminate.
type RunStats struct {
	// Attempts counts start_qmodem markers seen.
	Attempts int

	// Connected counts calls that reached carrier.
	Connected int

	DownloadSuccesses int
	DownloadFailures  int
}

// ConnectFailures is the number of attempts that never reached carrier.
func (s RunStats) ConnectFailures() int {
	return s.Attempts - s.Connected
}

// ConnectSuccessPercent is the connect rate over all attempts, 0 when there
// were no attempts.
func (s RunStats) ConnectSuccessPercent() float64 {
	if s.Attempts == 0 {
		return 0
	}
	return float64(s.Connected) / float64(s.Attempts) * 100
}

// DownloadSuccessPercent is the download success rate, 0 when no download was
// ever attempted.
func (s RunStats) DownloadSuccessPercent() float64 {
	total := s.DownloadSuccesses + s.DownloadFailures
	if total == 0 {
		return 0
	}
	return float64(s.DownloadSuccesses) / float64(total) * 100
}
