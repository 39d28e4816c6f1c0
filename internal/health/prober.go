package health

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/proxy"

	"github.com/video-feed-gateway/internal/config"
	"github.com/video-feed-gateway/internal/feed"
	"github.com/video-feed-gateway/internal/metrics"
)

// Prober runs reachability checks against configured endpoints. A probe
// failure is data, never an error: every outcome becomes a ProbeResult.
type Prober struct {
	cfg     config.HealthConfig
	metrics *metrics.Collector
	client  *http.Client
	timeout time.Duration
}

func NewProber(cfg config.HealthConfig, metricsCollector *metrics.Collector) (*Prober, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.Concurrency,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: timeout,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true, // third-party endpoints carry all kinds of certs
		},
	}

	if cfg.Socks5 != "" {
		dialer, err := proxy.SOCKS5("tcp", cfg.Socks5, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("socks5 dialer: %w", err)
		}
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	}

	return &Prober{
		cfg:     cfg,
		metrics: metricsCollector,
		timeout: timeout,
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
	}, nil
}

// Probe checks a single endpoint. Any network error, timeout, or non-200
// response records success=false; nothing propagates out of a probe.
func (p *Prober) Probe(ctx context.Context, ep feed.Endpoint) ProbeResult {
	start := time.Now()

	var result ProbeResult
	if p.cfg.Mode == "connect" {
		result = p.probeConnect(ep, start)
	} else {
		result = p.probeHTTP(ctx, ep, start)
	}

	if p.metrics != nil {
		if result.Success {
			p.metrics.RecordProbeSuccess()
			p.metrics.RecordProbeDuration(float64(result.LatencyMs) / 1000.0)
		} else {
			p.metrics.RecordProbeFailure()
		}
	}
	return result
}

func (p *Prober) probeHTTP(ctx context.Context, ep feed.Endpoint, start time.Time) ProbeResult {
	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, ep.Address, nil)
	if err != nil {
		return ProbeResult{Name: ep.Name, Address: ep.Address, Error: fmt.Sprintf("create request: %v", err)}
	}
	if p.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", p.cfg.UserAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return ProbeResult{Name: ep.Name, Address: ep.Address, Error: fmt.Sprintf("request: %v", err)}
	}
	defer resp.Body.Close()

	latency := time.Since(start)
	if resp.StatusCode != http.StatusOK {
		return ProbeResult{
			Name:      ep.Name,
			Address:   ep.Address,
			LatencyMs: latency.Milliseconds(),
			Error:     fmt.Sprintf("HTTP %d", resp.StatusCode),
		}
	}

	return ProbeResult{
		Name:      ep.Name,
		Address:   ep.Address,
		Success:   true,
		LatencyMs: latency.Milliseconds(),
	}
}

func (p *Prober) probeConnect(ep feed.Endpoint, start time.Time) ProbeResult {
	host, err := dialTarget(ep.Address)
	if err != nil {
		return ProbeResult{Name: ep.Name, Address: ep.Address, Error: err.Error()}
	}

	conn, err := net.DialTimeout("tcp", host, p.timeout)
	if err != nil {
		return ProbeResult{Name: ep.Name, Address: ep.Address, Error: fmt.Sprintf("connect: %v", err)}
	}
	conn.Close()

	return ProbeResult{
		Name:      ep.Name,
		Address:   ep.Address,
		Success:   true,
		LatencyMs: time.Since(start).Milliseconds(),
	}
}
