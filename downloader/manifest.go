package downloader

import (
	"strings"
	"time"
)

// RequestSource yields the network request URLs accumulated since the last
// drain. The browser session's request log satisfies it; tests feed fakes.
type RequestSource func() []string

// ManifestCapture polls the accumulated network log for the first
// streaming-manifest request after an episode page loads. The clock is
// injectable so tests run against a fake.
type ManifestCapture struct {
	Timeout  time.Duration
	Interval time.Duration

	// Extensions identify manifest URLs; defaults to {".mpd"}.
	Extensions []string

	// Now and Sleep default to the real clock.
	Now   func() time.Time
	Sleep func(time.Duration)
}

func (c *ManifestCapture) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *ManifestCapture) sleep(d time.Duration) {
	if c.Sleep != nil {
		c.Sleep(d)
		return
	}
	time.Sleep(d)
}

// Capture drains requests at the poll interval until a manifest URL shows
// up or the timeout elapses. It returns the first match even when later
// requests would also match; empty/malformed entries are skipped. A false
// return is a normal per-episode outcome, not an error.
func (c *ManifestCapture) Capture(requests RequestSource) (string, bool) {
	exts := c.Extensions
	if len(exts) == 0 {
		exts = []string{".mpd"}
	}

	deadline := c.now().Add(c.Timeout)
	for {
		for _, url := range requests() {
			if url == "" {
				continue
			}
			lower := strings.ToLower(url)
			for _, ext := range exts {
				if strings.Contains(lower, ext) {
					return url, true
				}
			}
		}
		if !c.now().Before(deadline) {
			return "", false
		}
		c.sleep(c.Interval)
	}
}
