// Package rewrite routes endpoint addresses through a relay prefix.
package rewrite

import (
	"fmt"
	"net/url"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/video-feed-gateway/internal/feed"
)

// Marker is the literal query parameter that identifies an already-relayed
// address. Everything after it is the (query-escaped) original target.
const Marker = "?url="

// Target extracts the original target from an address. An address containing
// the relay marker yields the unescaped tail; anything before the marker is
// discarded. Addresses without the marker are returned as-is.
func Target(address string) (string, error) {
	idx := strings.Index(address, Marker)
	if idx < 0 {
		return address, nil
	}
	target, err := url.QueryUnescape(address[idx+len(Marker):])
	if err != nil {
		return "", fmt.Errorf("unescape relayed target: %w", err)
	}
	return target, nil
}

// Address rewrites a single address to route through prefix. Stripping any
// existing marker before re-applying makes the operation idempotent:
// Address(Address(a, p), p) == Address(a, p).
func Address(address, prefix string) (string, error) {
	target, err := Target(address)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("parse target: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("target %q has no scheme or host", target)
	}
	return prefix + url.QueryEscape(target), nil
}

// Entries rewrites every endpoint address in the slice. A malformed address
// is passed through unrewritten and counted; one bad entry never aborts the
// batch. The input slice is not modified.
func Entries(entries []feed.Endpoint, prefix string) ([]feed.Endpoint, int) {
	out := make([]feed.Endpoint, len(entries))
	warnings := 0
	for i, ep := range entries {
		out[i] = ep
		addr, err := Address(ep.Address, prefix)
		if err != nil {
			warnings++
			log.Warnf("Skipping rewrite of %q (%s): %v", ep.Name, ep.Address, err)
			continue
		}
		out[i].Address = addr
	}
	return out, warnings
}
