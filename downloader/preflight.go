package downloader

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gocolly/colly"

	"github.com/FlashZ/vix-season-ripper/config"
)

// ProbeManifest fetches the captured manifest URL with the session's
// user agent and the episode page as referer, and checks the body actually
// looks like a streaming manifest. Advisory only: the orchestrator logs a
// failed probe and still hands the URL to the fetcher, whose exit code
// stays authoritative.
func ProbeManifest(manifestURL, userAgent, referer string) error {
	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(),
	)

	var (
		status   int
		body     []byte
		visitErr error
	)

	c.OnRequest(func(r *colly.Request) {
		if referer != "" {
			r.Headers.Set("Referer", referer)
		}
	})

	c.OnResponse(func(r *colly.Response) {
		if decompressed, err := decompressResponse(r); err != nil {
			config.Debugf("[downloader] preflight decompression error: %v", err)
		} else if decompressed {
			config.Debugf("[downloader] preflight response decompressed: %d bytes", len(r.Body))
		}
		status = r.StatusCode
		body = r.Body
	})

	c.OnError(func(r *colly.Response, err error) {
		visitErr = err
		if r != nil {
			status = r.StatusCode
		}
	})

	if err := c.Visit(manifestURL); err != nil && visitErr == nil {
		visitErr = err
	}
	if visitErr != nil {
		return fmt.Errorf("manifest probe failed (status %d): %w", status, visitErr)
	}
	if !looksLikeManifest(body) {
		return fmt.Errorf("manifest probe response does not look like a streaming manifest (status %d, %d bytes)", status, len(body))
	}
	return nil
}

// looksLikeManifest sniffs the body head for a DASH MPD or HLS playlist
// marker.
func looksLikeManifest(body []byte) bool {
	head := body
	if len(head) > 2048 {
		head = head[:2048]
	}
	s := string(head)
	return strings.Contains(s, "<MPD") || strings.Contains(s, "#EXTM3U")
}

// decompressResponse detects gzip by magic bytes and Brotli by the
// Content-Encoding header or a first-byte heuristic, rewriting the body in
// place. Manifest CDNs routinely serve both.
func decompressResponse(r *colly.Response) (bool, error) {
	if r == nil || len(r.Body) == 0 {
		return false, nil
	}

	if len(r.Body) >= 2 && r.Body[0] == 0x1f && r.Body[1] == 0x8b {
		reader, err := gzip.NewReader(bytes.NewReader(r.Body))
		if err != nil {
			return false, err
		}
		defer reader.Close()
		out, err := io.ReadAll(reader)
		if err != nil {
			return false, err
		}
		r.Body = out
		return true, nil
	}

	if r.Headers.Get("Content-Encoding") == "br" || (r.Body[0] >= 0x80 && r.Body[0] <= 0x8f) {
		out, err := io.ReadAll(brotli.NewReader(bytes.NewReader(r.Body)))
		if err != nil {
			// Heuristic misfire: treat as uncompressed.
			return false, nil
		}
		r.Body = out
		return true, nil
	}

	return false, nil
}
