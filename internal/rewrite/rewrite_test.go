package rewrite

import (
	"testing"

	"github.com/video-feed-gateway/internal/feed"
)

func TestAddressScenario(t *testing.T) {
	const prefix = "https://proxy.test/?url="

	got, err := Address("https://x.test/api", prefix)
	if err != nil {
		t.Fatalf("Address: %v", err)
	}
	want := "https://proxy.test/?url=https%3A%2F%2Fx.test%2Fapi"
	if got != want {
		t.Errorf("Address = %q, want %q", got, want)
	}

	// Re-rewriting with the same prefix must yield the identical string.
	again, err := Address(got, prefix)
	if err != nil {
		t.Fatalf("Address (second pass): %v", err)
	}
	if again != got {
		t.Errorf("not idempotent: %q != %q", again, got)
	}
}

func TestAddressReplacesOldPrefix(t *testing.T) {
	old := "https://old-proxy.test/?url=https%3A%2F%2Fx.test%2Fapi"
	got, err := Address(old, "https://new-proxy.test/?url=")
	if err != nil {
		t.Fatalf("Address: %v", err)
	}
	want := "https://new-proxy.test/?url=https%3A%2F%2Fx.test%2Fapi"
	if got != want {
		t.Errorf("Address = %q, want %q", got, want)
	}
}

func TestTarget(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://x.test/api", "https://x.test/api"},
		{"https://p.test/?url=https%3A%2F%2Fx.test%2Fapi", "https://x.test/api"},
		{"https://p.test/?url=https://x.test/api", "https://x.test/api"},
	}
	for _, tc := range tests {
		got, err := Target(tc.in)
		if err != nil {
			t.Errorf("Target(%q) error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Target(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestEntriesIdempotent(t *testing.T) {
	const prefix = "https://proxy.test/?url="
	entries := []feed.Endpoint{
		{Key: "a", Name: "A", Address: "https://x.test/api"},
		{Key: "b", Name: "B", Address: "https://y.test/v1/provide?wd="},
	}

	once, warnings := Entries(entries, prefix)
	if warnings != 0 {
		t.Fatalf("unexpected warnings: %d", warnings)
	}
	twice, _ := Entries(once, prefix)
	for i := range once {
		if once[i].Address != twice[i].Address {
			t.Errorf("entry %d not idempotent: %q != %q", i, once[i].Address, twice[i].Address)
		}
	}
}

func TestEntriesMalformedPassthrough(t *testing.T) {
	entries := []feed.Endpoint{
		{Key: "bad", Name: "Bad", Address: "not a url"},
		{Key: "good", Name: "Good", Address: "https://x.test/api"},
	}

	out, warnings := Entries(entries, "https://proxy.test/?url=")
	if warnings != 1 {
		t.Errorf("warnings = %d, want 1", warnings)
	}
	// Bad entry passes through unrewritten; the rest of the batch proceeds.
	if out[0].Address != "not a url" {
		t.Errorf("malformed address was modified: %q", out[0].Address)
	}
	if out[1].Address == entries[1].Address {
		t.Errorf("good entry was not rewritten")
	}
	// Input slice untouched.
	if entries[1].Address != "https://x.test/api" {
		t.Errorf("input slice was mutated")
	}
}
