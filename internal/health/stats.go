package health

import "github.com/video-feed-gateway/internal/feed"

// alertStreak is the consecutive-failure count at which an endpoint is
// flagged instead of merely failing.
const alertStreak = 3

// Append adds a day to the history and trims the oldest entries so at most
// limit days remain.
func Append(h History, day HistoryDay, limit int) History {
	h = append(h, day)
	if len(h) > limit {
		h = h[len(h)-limit:]
	}
	return h
}

// ComputeStats derives per-endpoint statistics from scratch. Endpoints are
// matched across days by name; a day where an endpoint is absent contributes
// neither ok nor fail and does not reset the failure streak. Duplicates are
// grouped over the current document snapshot, not over history.
func ComputeStats(entries []feed.Endpoint, h History) []EndpointStats {
	addrCount := make(map[string]int, len(entries))
	for _, ep := range entries {
		addrCount[ep.Address]++
	}

	var latest map[string]bool
	if len(h) > 0 {
		latest = make(map[string]bool)
		for _, r := range h[len(h)-1].Results {
			latest[r.Name] = r.Success
		}
	}

	stats := make([]EndpointStats, 0, len(entries))
	for _, ep := range entries {
		st := EndpointStats{
			Name:      ep.Name,
			Address:   ep.Address,
			Duplicate: addrCount[ep.Address] > 1,
		}

		for _, day := range h {
			for _, r := range day.Results {
				if r.Name != ep.Name {
					continue
				}
				if r.Success {
					st.OK++
					st.FailStreak = 0
				} else {
					st.Fail++
					st.FailStreak++
				}
			}
		}

		switch {
		case st.Duplicate:
			st.Status = StatusDuplicate
		case st.FailStreak >= alertStreak:
			st.Status = StatusAlert
		case latest[ep.Name]:
			st.Status = StatusOK
		default:
			st.Status = StatusFail
		}

		stats = append(stats, st)
	}
	return stats
}
