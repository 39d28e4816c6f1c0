// Package report renders aggregator state as markdown and extracts the
// embedded history blob back out of it. The rendered text is the canonical
// persisted state between runs.
package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/video-feed-gateway/internal/health"
)

const historyHeading = "## Probe History"

var statusGlyph = map[health.Status]string{
	health.StatusOK:        "✅",
	health.StatusFail:      "❌",
	health.StatusAlert:     "⚠️",
	health.StatusDuplicate: "♻️",
}

// Render produces the full report: summary header, one table row per
// endpoint in document order, and a fenced JSON block holding the history.
// ParseHistory(Render(..., h)) == h.
func Render(generated time.Time, stats []health.EndpointStats, h health.History) string {
	var b strings.Builder

	counts := map[health.Status]int{}
	for _, st := range stats {
		counts[st.Status]++
	}

	b.WriteString("# API Endpoint Status\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", generated.UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "Endpoints: %d | OK: %d | Fail: %d | Alert: %d | Duplicate: %d\n\n",
		len(stats),
		counts[health.StatusOK],
		counts[health.StatusFail],
		counts[health.StatusAlert],
		counts[health.StatusDuplicate])

	b.WriteString("| Status | Name | Address | OK | Fail | Availability | Streak |\n")
	b.WriteString("|---|---|---|---|---|---|---|\n")
	for _, st := range stats {
		fmt.Fprintf(&b, "| %s %s | %s | %s | %d | %d | %.1f%% | %d |\n",
			statusGlyph[st.Status], strings.ToUpper(string(st.Status)),
			escapeCell(st.Name), escapeCell(st.Address),
			st.OK, st.Fail, st.Availability(), st.FailStreak)
	}

	b.WriteString("\n" + historyHeading + "\n\n")
	b.WriteString("```json\n")
	data, _ := json.MarshalIndent(h, "", "  ")
	b.Write(data)
	b.WriteString("\n```\n")

	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

// ParseHistory extracts the serialized history from a rendered report. The
// extraction rule is fixed across versions: the last ```json fence in the
// text. An empty report or a missing/garbled fence is an error; callers
// bootstrap with an empty history.
func ParseHistory(text string) (health.History, error) {
	const fenceOpen = "```json\n"
	const fenceClose = "\n```"

	start := strings.LastIndex(text, fenceOpen)
	if start < 0 {
		return nil, fmt.Errorf("no history block found")
	}
	body := text[start+len(fenceOpen):]
	end := strings.Index(body, fenceClose)
	if end < 0 {
		return nil, fmt.Errorf("unterminated history block")
	}

	var h health.History
	if err := json.Unmarshal([]byte(body[:end]), &h); err != nil {
		return nil, fmt.Errorf("parse history JSON: %w", err)
	}
	return h, nil
}
