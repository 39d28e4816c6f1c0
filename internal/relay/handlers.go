package relay

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/video-feed-gateway/internal/codec"
	"github.com/video-feed-gateway/internal/rewrite"
)

// Hop-by-hop headers are meaningful per connection and must not be relayed.
var hopByHop = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Proxy-Connection":    true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

// handleDispatch is the edge entry point. First match wins:
// url -> pass-through relay, config=0/1 -> document (raw/rewritten),
// encode=base58 composes with config, anything else -> usage payload.
func (s *Server) handleDispatch(c *gin.Context) {
	switch {
	case c.Query("url") != "":
		s.handleRelay(c)
	case c.Query("config") != "":
		s.handleConfig(c)
	default:
		s.handleUsage(c)
	}
}

func (s *Server) handleRelay(c *gin.Context) {
	target := c.Query("url")

	req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, target, c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid target URL: %v", err)})
		return
	}
	for key, values := range c.Request.Header {
		if hopByHop[key] || key == "Host" {
			continue
		}
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := s.upstream.Do(req)
	if err != nil {
		s.metrics.RecordUpstreamError()
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("upstream fetch failed: %v", err)})
		return
	}
	defer resp.Body.Close()

	for key, values := range resp.Header {
		if hopByHop[key] {
			continue
		}
		for _, v := range values {
			c.Writer.Header().Add(key, v)
		}
	}
	c.Status(resp.StatusCode)
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		log.Warnf("Relay body copy interrupted: %v", err)
	}
}

func (s *Server) handleConfig(c *gin.Context) {
	doc := s.feed.Get()
	if doc == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "endpoint document not loaded"})
		return
	}

	var body []byte
	switch c.Query("config") {
	case "0":
		body = doc.MarshalRaw()
	case "1":
		prefix := c.Query("prefix")
		if prefix == "" {
			prefix = s.defaultPrefix(c)
		}
		entries, warnings := rewrite.Entries(doc.Entries, prefix)
		if warnings > 0 {
			log.Warnf("Rewrite passed %d malformed addresses through unchanged", warnings)
		}
		body = doc.MarshalWith(entries)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "config must be 0 or 1"})
		return
	}

	if c.Query("encode") == "base58" {
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(codec.Encode(body)))
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// defaultPrefix derives the rewrite prefix from the request's own origin
// when neither the prefix parameter nor the configured default is set.
func (s *Server) defaultPrefix(c *gin.Context) string {
	if s.config.Relay.DefaultPrefix != "" {
		return s.config.Relay.DefaultPrefix
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if forwarded := c.GetHeader("X-Forwarded-Proto"); forwarded != "" {
		scheme = forwarded
	}
	return scheme + "://" + c.Request.Host + "/" + rewrite.Marker
}

func (s *Server) handleUsage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "video-feed-gateway",
		"usage": gin.H{
			"url":    "relay the request to the given URL",
			"config": "0 = raw endpoint document, 1 = rewritten through this relay",
			"encode": "base58 encodes the config response",
			"prefix": "override the rewrite prefix (default: this origin + /?url=)",
		},
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func (s *Server) handleStatus(c *gin.Context) {
	res := s.runner.Latest()
	if res == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no health run completed yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"generated": res.Generated.Format(time.RFC3339),
		"endpoints": len(res.Stats),
		"stats":     res.Stats,
	})
}

func (s *Server) handleReport(c *gin.Context) {
	res := s.runner.Latest()
	if res == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no health run completed yet"})
		return
	}
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(res.Report))
}

func (s *Server) handleReload(c *gin.Context) {
	err := s.feed.Load(c.Request.Context())
	s.metrics.RecordFeedReload(err == nil)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	doc := s.feed.Get()
	c.JSON(http.StatusOK, gin.H{
		"message":   "Endpoint document reloaded",
		"endpoints": len(doc.Entries),
	})
}

func (s *Server) handleRun(c *gin.Context) {
	log.Info("Manual health run triggered via API")

	go func() {
		if _, err := s.runner.Run(context.Background()); err != nil {
			log.Errorf("Manual health run failed: %v", err)
		}
	}()

	c.JSON(http.StatusOK, gin.H{"message": "Health run triggered"})
}
