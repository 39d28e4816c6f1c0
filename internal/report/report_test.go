package report

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/video-feed-gateway/internal/health"
)

func sampleHistory() health.History {
	return health.History{
		{
			Date: "2026-08-22",
			Results: []health.ProbeResult{
				{Name: "a", Address: "https://a.test/api", Success: true, LatencyMs: 120},
				{Name: "b", Address: "https://b.test/api", Success: false, Error: "HTTP 502"},
			},
		},
		{
			Date: "2026-08-23",
			Results: []health.ProbeResult{
				{Name: "a", Address: "https://a.test/api", Success: true, LatencyMs: 98},
				{Name: "b", Address: "https://b.test/api", Success: false, Error: "request: timeout"},
			},
		},
	}
}

func sampleStats() []health.EndpointStats {
	return []health.EndpointStats{
		{Name: "a", Address: "https://a.test/api", OK: 2, Fail: 0, Status: health.StatusOK},
		{Name: "b", Address: "https://b.test/api", OK: 0, Fail: 2, FailStreak: 2, Status: health.StatusFail},
	}
}

func TestRenderParseRoundTrip(t *testing.T) {
	h := sampleHistory()
	text := Render(time.Date(2026, 8, 23, 4, 5, 6, 0, time.UTC), sampleStats(), h)

	parsed, err := ParseHistory(text)
	if err != nil {
		t.Fatalf("ParseHistory: %v", err)
	}
	if !reflect.DeepEqual(parsed, h) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", parsed, h)
	}
}

func TestRenderHeaderAndTable(t *testing.T) {
	text := Render(time.Date(2026, 8, 23, 4, 5, 6, 0, time.UTC), sampleStats(), sampleHistory())

	for _, want := range []string{
		"Generated: 2026-08-23 04:05:06 UTC",
		"Endpoints: 2 | OK: 1 | Fail: 1 | Alert: 0 | Duplicate: 0",
		"| Status | Name | Address | OK | Fail | Availability | Streak |",
		"| ✅ OK | a | https://a.test/api | 2 | 0 | 100.0% | 0 |",
		"| ❌ FAIL | b | https://b.test/api | 0 | 2 | 0.0% | 2 |",
		"## Probe History",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing %q\n%s", want, text)
		}
	}
}

func TestRenderRowsFollowInputOrder(t *testing.T) {
	stats := []health.EndpointStats{
		{Name: "zeta", Address: "https://z.test", Status: health.StatusOK},
		{Name: "alpha", Address: "https://a.test", Status: health.StatusOK},
	}
	text := Render(time.Now(), stats, nil)
	if strings.Index(text, "zeta") > strings.Index(text, "alpha") {
		t.Error("rows were reordered; document order must be preserved")
	}
}

func TestParseHistoryMissingBlock(t *testing.T) {
	for _, in := range []string{"", "# report with no fence", "```json\n[1,2"} {
		if _, err := ParseHistory(in); err == nil {
			t.Errorf("ParseHistory(%q) succeeded, want error", in)
		}
	}
}

func TestParseHistoryPicksLastFence(t *testing.T) {
	// An endpoint name could legitimately contain a code fence in some other
	// block; extraction is pinned to the last ```json fence.
	text := "```json\n{\"decoy\": true}\n```\n\n## Probe History\n\n```json\n[]\n```\n"
	h, err := ParseHistory(text)
	if err != nil {
		t.Fatalf("ParseHistory: %v", err)
	}
	if len(h) != 0 {
		t.Errorf("got %d days, want 0", len(h))
	}
}
