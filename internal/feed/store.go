package feed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/video-feed-gateway/internal/config"
)

const maxDocumentBytes = 10 * 1024 * 1024

// Store holds the current endpoint document revision. Readers get an
// immutable snapshot; Load swaps the whole document atomically when the
// source content changes.
type Store struct {
	source    string
	userAgent string
	client    *http.Client
	current   atomic.Value // stores *Document
}

func NewStore(cfg config.FeedConfig) *Store {
	return &Store{
		source:    cfg.Source,
		userAgent: cfg.UserAgent,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Get returns the current document revision, or nil before the first
// successful Load.
func (s *Store) Get() *Document {
	doc, _ := s.current.Load().(*Document)
	return doc
}

// Load reads the source, parses it, and swaps the current revision if the
// content hash changed. A parse failure leaves the previous revision active.
func (s *Store) Load(ctx context.Context) error {
	data, err := s.fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch endpoint document: %w", err)
	}

	if prev := s.Get(); prev != nil && prev.Hash() == contentHash(data) {
		log.Debugf("Endpoint document unchanged (hash %s)", prev.Hash()[:12])
		return nil
	}

	doc, err := ParseDocument(data)
	if err != nil {
		return err
	}

	s.current.Store(doc)
	log.Infof("Endpoint document loaded: %d endpoints (hash %s)", len(doc.Entries), doc.Hash()[:12])
	return nil
}

func (s *Store) fetch(ctx context.Context) ([]byte, error) {
	if strings.HasPrefix(s.source, "http://") || strings.HasPrefix(s.source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.source, nil)
		if err != nil {
			return nil, err
		}
		if s.userAgent != "" {
			req.Header.Set("User-Agent", s.userAgent)
		}
		resp, err := s.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
		}
		return io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	}
	return os.ReadFile(s.source)
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
