package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/video-feed-gateway/internal/codec"
	"github.com/video-feed-gateway/internal/config"
	"github.com/video-feed-gateway/internal/feed"
	"github.com/video-feed-gateway/internal/health"
	"github.com/video-feed-gateway/internal/metrics"
	"github.com/video-feed-gateway/internal/monitor"
	"github.com/video-feed-gateway/internal/storage"
)

// promauto registers into the default registry, so the whole package shares
// one collector.
var testMetrics = metrics.NewCollector("relaytest")

const testDoc = `{"api_site": {
  "a": {"name": "Alpha", "api": "https://a.test/api", "detail": "https://a.test"},
  "b": {"name": "Beta", "api": "https://b.test/v1/provide"}
}}`

func newTestServer(t *testing.T, doc string) *Server {
	t.Helper()

	dir := t.TempDir()
	docPath := filepath.Join(dir, "api.json")
	if err := os.WriteFile(docPath, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		Feed: config.FeedConfig{Source: docPath},
		Health: config.HealthConfig{
			TimeoutSeconds: 2,
			Concurrency:    2,
			Mode:           "http",
			HistoryDays:    30,
		},
		Relay: config.RelayConfig{
			Addr:               ":0",
			UpstreamTimeoutMs:  2000,
			RateLimitPerMinute: 6000,
		},
		Storage: config.StorageConfig{Type: "file", Path: filepath.Join(dir, "report.md")},
		Logging: config.LoggingConfig{Level: "error"},
	}

	feedStore := feed.NewStore(cfg.Feed)
	if err := feedStore.Load(context.Background()); err != nil {
		t.Fatalf("load document: %v", err)
	}

	store, err := storage.NewFileStorage(cfg.Storage.Path)
	if err != nil {
		t.Fatal(err)
	}
	prober, err := health.NewProber(cfg.Health, nil)
	if err != nil {
		t.Fatal(err)
	}
	runner := monitor.NewRunner(cfg.Health, feedStore, prober, store, nil)

	return NewServer(cfg, feedStore, runner, testMetrics)
}

func do(s *Server, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestDispatchUsage(t *testing.T) {
	s := newTestServer(t, testDoc)
	w := do(s, http.MethodGet, "/")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "usage") {
		t.Errorf("no usage payload: %s", w.Body.String())
	}
}

func TestConfigRaw(t *testing.T) {
	s := newTestServer(t, testDoc)
	w := do(s, http.MethodGet, "/?config=0")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("content type = %q", ct)
	}

	var got map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	sites := got["api_site"].(map[string]any)
	a := sites["a"].(map[string]any)
	if a["api"] != "https://a.test/api" || a["detail"] != "https://a.test" {
		t.Errorf("raw config altered: %v", a)
	}
}

func TestConfigRewritten(t *testing.T) {
	s := newTestServer(t, testDoc)

	q := url.Values{}
	q.Set("config", "1")
	q.Set("prefix", "https://proxy.test/?url=")
	w := do(s, http.MethodGet, "/?"+q.Encode())
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var got map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	a := got["api_site"].(map[string]any)["a"].(map[string]any)
	want := "https://proxy.test/?url=https%3A%2F%2Fa.test%2Fapi"
	if a["api"] != want {
		t.Errorf("api = %v, want %v", a["api"], want)
	}
	// Untouched extra field survives rewriting.
	if a["detail"] != "https://a.test" {
		t.Errorf("detail = %v", a["detail"])
	}
}

func TestConfigDefaultPrefixUsesOrigin(t *testing.T) {
	s := newTestServer(t, testDoc)
	w := do(s, http.MethodGet, "http://gateway.example/?config=1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var got map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	a := got["api_site"].(map[string]any)["a"].(map[string]any)
	if !strings.HasPrefix(a["api"].(string), "http://gateway.example/?url=") {
		t.Errorf("api = %v, want origin-based prefix", a["api"])
	}
}

func TestConfigBase58(t *testing.T) {
	s := newTestServer(t, testDoc)

	plain := do(s, http.MethodGet, "/?config=0")
	encoded := do(s, http.MethodGet, "/?config=0&encode=base58")
	if encoded.Code != http.StatusOK {
		t.Fatalf("status = %d", encoded.Code)
	}
	if ct := encoded.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type = %q", ct)
	}

	decoded, err := codec.Decode(encoded.Body.String())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(decoded) != plain.Body.String() {
		t.Errorf("base58 payload does not decode to the JSON response")
	}
}

func TestConfigInvalidValue(t *testing.T) {
	s := newTestServer(t, testDoc)
	w := do(s, http.MethodGet, "/?config=2")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestRelayPassThrough(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Custom") != "forwarded" {
			t.Errorf("custom header not forwarded")
		}
		w.Header().Set("X-Upstream", "yes")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("hello upstream"))
	}))
	defer upstream.Close()

	s := newTestServer(t, testDoc)
	req := httptest.NewRequest(http.MethodGet, "/?url="+url.QueryEscape(upstream.URL+"/x"), nil)
	req.Header.Set("X-Custom", "forwarded")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", w.Code)
	}
	if w.Header().Get("X-Upstream") != "yes" {
		t.Errorf("upstream header not relayed")
	}
	if w.Body.String() != "hello upstream" {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestRelayUpstreamFailure(t *testing.T) {
	s := newTestServer(t, testDoc)
	w := do(s, http.MethodGet, "/?url="+url.QueryEscape("http://127.0.0.1:1/dead"))
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
	if !strings.Contains(w.Body.String(), "upstream fetch failed") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestStatusLifecycle(t *testing.T) {
	live := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer live.Close()

	doc := `{"api_site": {"a": {"name": "Alpha", "api": "` + live.URL + `"}}}`
	s := newTestServer(t, doc)

	if w := do(s, http.MethodGet, "/status"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("status before any run = %d, want 503", w.Code)
	}

	if _, err := s.runner.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	w := do(s, http.MethodGet, "/status")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("stats missing: %s", w.Body.String())
	}

	if w := do(s, http.MethodGet, "/report"); w.Code != http.StatusOK ||
		!strings.Contains(w.Body.String(), "## Probe History") {
		t.Errorf("report not served: %d", w.Code)
	}
}

func TestReloadEndpoint(t *testing.T) {
	s := newTestServer(t, testDoc)
	w := do(s, http.MethodPost, "/reload")
	if w.Code != http.StatusOK {
		t.Errorf("reload status = %d: %s", w.Code, w.Body.String())
	}
}
