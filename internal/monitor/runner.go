// Package monitor drives health-check runs: probe every configured endpoint,
// fold the results into the rolling history, and persist the rendered report.
package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/video-feed-gateway/internal/config"
	"github.com/video-feed-gateway/internal/feed"
	"github.com/video-feed-gateway/internal/health"
	"github.com/video-feed-gateway/internal/metrics"
	"github.com/video-feed-gateway/internal/report"
	"github.com/video-feed-gateway/internal/storage"
)

// RunResult is the outcome of one completed run, kept in memory for the API.
type RunResult struct {
	Generated time.Time              `json:"generated"`
	Stats     []health.EndpointStats `json:"stats"`
	Report    string                 `json:"-"`
}

// Runner executes health-check runs. The history read-modify-write
// (load report -> append day -> trim -> save) is not guarded against
// concurrent runs; scheduling must ensure at most one run is active at a
// time. An internal mutex serializes the loop against /run triggers from the
// API, but nothing protects against a second process.
type Runner struct {
	cfg     config.HealthConfig
	feed    *feed.Store
	prober  *health.Prober
	store   storage.Storage
	metrics *metrics.Collector

	runMu  sync.Mutex
	latest atomic.Value // stores *RunResult
}

func NewRunner(cfg config.HealthConfig, feedStore *feed.Store, prober *health.Prober,
	store storage.Storage, metricsCollector *metrics.Collector) *Runner {
	return &Runner{
		cfg:     cfg,
		feed:    feedStore,
		prober:  prober,
		store:   store,
		metrics: metricsCollector,
	}
}

// Latest returns the most recent completed run, or nil before the first one.
func (r *Runner) Latest() *RunResult {
	res, _ := r.latest.Load().(*RunResult)
	return res
}

// Run executes one full cycle. Probe failures are recorded as data; the run
// persists whatever it obtained even when every probe fails.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	start := time.Now()
	doc := r.feed.Get()
	if doc == nil {
		return nil, errNoDocument
	}
	entries := doc.Entries
	log.Infof("Starting health run: %d endpoints, concurrency=%d", len(entries), r.cfg.Concurrency)

	prior, err := r.store.Load()
	if err != nil {
		log.Warnf("Failed to load prior report: %v (starting fresh)", err)
	}
	history, err := report.ParseHistory(prior)
	if err != nil {
		if prior != "" {
			log.Warnf("Prior report unparseable: %v (starting fresh)", err)
		}
		history = health.History{}
	}

	results := r.probeAll(ctx, entries)

	day := health.HistoryDay{
		Date:    start.UTC().Format("2006-01-02"),
		Results: results,
	}
	history = health.Append(history, day, r.cfg.HistoryDays)
	stats := health.ComputeStats(entries, history)

	text := report.Render(start, stats, history)
	if err := r.store.Save(text); err != nil {
		log.Errorf("Failed to persist report: %v", err)
	}

	res := &RunResult{Generated: start, Stats: stats, Report: text}
	r.latest.Store(res)

	if r.metrics != nil {
		byStatus := make(map[string]int)
		for _, st := range stats {
			byStatus[string(st.Status)]++
		}
		r.metrics.RecordEndpoints(len(entries), byStatus)
		r.metrics.RecordRunDuration(time.Since(start).Seconds())
	}

	okCount := 0
	for _, pr := range results {
		if pr.Success {
			okCount++
		}
	}
	log.Infof("Health run complete: %d/%d reachable in %v", okCount, len(results), time.Since(start))
	return res, nil
}

// probeAll checks every endpoint with bounded parallelism. Results come back
// in document order; one slow or dead endpoint never delays the others
// beyond the semaphore.
func (r *Runner) probeAll(ctx context.Context, entries []feed.Endpoint) []health.ProbeResult {
	results := make([]health.ProbeResult, len(entries))

	sem := make(chan struct{}, r.cfg.Concurrency)
	var wg sync.WaitGroup

	for i, ep := range entries {
		sem <- struct{}{}
		wg.Add(1)

		go func(i int, ep feed.Endpoint) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = r.prober.Probe(ctx, ep)
		}(i, ep)
	}

	wg.Wait()
	return results
}

// Loop runs cycles on a fixed interval until ctx is done. The first cycle
// fires immediately.
func (r *Runner) Loop(ctx context.Context, interval time.Duration) {
	if _, err := r.Run(ctx); err != nil {
		log.Errorf("Health run failed: %v", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Health loop stopped")
			return
		case <-ticker.C:
			if _, err := r.Run(ctx); err != nil {
				log.Errorf("Health run failed: %v", err)
			}
		}
	}
}
