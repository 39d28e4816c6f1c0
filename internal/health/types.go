package health

// Status classifies one endpoint after a run. Rendering (glyphs) lives in
// the report package, not here.
type Status string

const (
	StatusOK        Status = "ok"
	StatusFail      Status = "fail"
	StatusAlert     Status = "alert"
	StatusDuplicate Status = "duplicate"
)

// ProbeResult is one reachability check of one endpoint.
type ProbeResult struct {
	Name      string `json:"name"`
	Address   string `json:"address"`
	Success   bool   `json:"success"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// HistoryDay is one run's batch of probe results.
type HistoryDay struct {
	Date    string        `json:"date"` // YYYY-MM-DD
	Results []ProbeResult `json:"results"`
}

// History is the chronological, bounded sequence of daily batches. It is the
// sole durable state between runs.
type History []HistoryDay

// EndpointStats is derived wholesale from History every run; it is never
// persisted, so hand-edited or corrupted history self-heals from raw data.
type EndpointStats struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	OK         int    `json:"ok"`
	Fail       int    `json:"fail"`
	FailStreak int    `json:"fail_streak"`
	Duplicate  bool   `json:"duplicate"`
	Status     Status `json:"status"`
}

// Availability returns the success percentage over all recorded probes, or
// 0 when the endpoint has no history yet.
func (s EndpointStats) Availability() float64 {
	total := s.OK + s.Fail
	if total == 0 {
		return 0
	}
	return float64(s.OK) / float64(total) * 100.0
}
