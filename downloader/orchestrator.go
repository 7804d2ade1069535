// Package downloader drives the resumable per-episode pipeline: skip-if-
// done check, navigation, manifest capture, external fetch, success
// recording and optional subtitle conversion.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/FlashZ/vix-season-ripper/config"
	"github.com/FlashZ/vix-season-ripper/ledger"
	"github.com/FlashZ/vix-season-ripper/models"
	"github.com/FlashZ/vix-season-ripper/parser"
)

// Page is the navigation surface the orchestrator needs from the browser
// session.
type Page interface {
	NavigateEpisode(url string) error
	ClearNetworkLog()
	DrainRequests() []string
	Heading() (string, error)
	UserAgent() (string, error)
	CurrentURL() (string, error)
}

// Orchestrator owns the browser session, the ledgers and the external
// tools for the duration of one run and processes episodes strictly
// sequentially.
type Orchestrator struct {
	Page      Page
	Fetcher   Fetcher
	Converter SubtitleConverter
	Capture   *ManifestCapture
	Ledger    *ledger.Ledger
	Failures  *ledger.FailureLog

	OutDir     string
	SeriesSlug string
	Lang       string

	// EpisodeDelay paces episode processing; zero disables pacing.
	EpisodeDelay time.Duration

	// Preflight optionally probes the captured manifest URL before the
	// fetch. Advisory: a failed probe is logged and fetching proceeds.
	Preflight func(manifestURL, userAgent, referer string) error
}

// Run processes the episode list in order. Per-episode failures are
// recorded in the failure log and the loop advances; only a missing fetch
// utility, a ledger write failure or context cancellation abort the run.
// The returned results always cover every episode attempted so far.
func (o *Orchestrator) Run(ctx context.Context, episodes []models.Episode) ([]models.EpisodeResult, error) {
	results := make([]models.EpisodeResult, 0, len(episodes))

	var limiter *parser.RateLimiter
	if o.EpisodeDelay > 0 {
		limiter = parser.NewRateLimiter(o.EpisodeDelay)
		defer limiter.Stop()
	}

	first := true
	for _, ep := range episodes {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		if o.Ledger.Done(ep.Code) {
			log.Printf("[downloader] -- skipping %s (%q): already tracked or downloaded", ep.Code, ep.Title)
			results = append(results, models.EpisodeResult{Episode: ep, State: models.StateSkipped})
			continue
		}

		if !strings.HasPrefix(ep.Href, "http") {
			log.Printf("[downloader] ⚠️ skipping malformed relative link for %s: %s", ep.Code, ep.Href)
			results = append(results, models.EpisodeResult{Episode: ep, State: models.StateNavFailed, Reason: "malformed href"})
			continue
		}

		if !first && limiter != nil {
			limiter.Wait()
		}
		first = false

		result, err := o.processEpisode(ctx, ep)
		results = append(results, result)
		if err != nil {
			return results, err
		}
	}

	return results, nil
}

func (o *Orchestrator) processEpisode(ctx context.Context, ep models.Episode) (models.EpisodeResult, error) {
	log.Printf("[downloader] === processing %s (%q) ===", ep.Code, ep.Title)

	// The log must only contain requests from this episode's page.
	o.Page.ClearNetworkLog()

	if err := o.Page.NavigateEpisode(ep.Href); err != nil {
		reason := models.ReasonPageLoadFail
		if errors.Is(err, context.DeadlineExceeded) {
			reason = models.ReasonPageLoadTimeout
		}
		log.Printf("[downloader] navigation failed for %s: %v", ep.Code, err)
		o.Failures.Append(ep.Code, ep.Href, reason)
		return models.EpisodeResult{Episode: ep, State: models.StateNavFailed, Reason: reason}, nil
	}

	// The on-page heading is more reliable than the card label; prefer it
	// when they diverge. Failure to read it is soft.
	if heading, err := o.Page.Heading(); err == nil && heading != "" {
		if !strings.Contains(parser.Fold(ep.Title), parser.Fold(heading)) {
			log.Printf("[downloader] ⚠️ page heading %q differs from collected title %q, using page heading", heading, ep.Title)
			ep.Title = heading
		}
	}

	manifestURL, found := o.Capture.Capture(o.Page.DrainRequests)
	if !found {
		log.Printf("[downloader] no manifest request observed for %s at %s", ep.Code, ep.Href)
		o.Failures.Append(ep.Code, ep.Href, models.ReasonNoManifest)
		return models.EpisodeResult{Episode: ep, State: models.StateNoManifest, Reason: models.ReasonNoManifest}, nil
	}
	log.Printf("[downloader] manifest found: %s", manifestURL)

	stem := parser.Slug(o.SeriesSlug + "." + ep.FileCode)

	headers := make(map[string]string)
	if ua, err := o.Page.UserAgent(); err == nil && ua != "" {
		headers["User-Agent"] = ua
	}
	referer := ep.Href
	if current, err := o.Page.CurrentURL(); err == nil && current != "" {
		referer = current
	}
	headers["Referer"] = referer

	if o.Preflight != nil {
		if err := o.Preflight(manifestURL, headers["User-Agent"], referer); err != nil {
			log.Printf("[downloader] ⚠️ manifest preflight failed (fetching anyway): %v", err)
		} else {
			config.Debugf("[downloader] ✓ manifest preflight ok")
		}
	}

	log.Printf("[downloader] starting download for %s → %s.mp4", ep.Code, filepath.Join(o.OutDir, stem))
	exitCode, err := o.Fetcher.Fetch(ctx, manifestURL, o.OutDir, stem, o.Lang, headers)
	if err != nil {
		if errors.Is(err, ErrFetcherMissing) {
			log.Printf("[downloader] FATAL: %v", err)
			return models.EpisodeResult{Episode: ep, State: models.StateFetchFail, Reason: "FETCHER_MISSING"}, err
		}
		log.Printf("[downloader] fetch invocation failed for %s: %v", ep.Code, err)
		o.Failures.Append(ep.Code, ep.Href, models.ReasonFetchException)
		return models.EpisodeResult{Episode: ep, State: models.StateFetchFail, Reason: models.ReasonFetchException}, nil
	}
	if exitCode != 0 {
		reason := models.FetchFailReason(exitCode)
		log.Printf("[downloader] fetch utility failed (code %d) for %s", exitCode, ep.Href)
		o.Failures.Append(ep.Code, ep.Href, reason)
		return models.EpisodeResult{Episode: ep, State: models.StateFetchFail, Reason: reason}, nil
	}

	// Record success immediately, before any subtitle work: a crash during
	// conversion must never cause a re-download on resume.
	filename := stem + ".mp4"
	if err := o.Ledger.Record(ep.Code, ep.Title, filename); err != nil {
		return models.EpisodeResult{Episode: ep, State: models.StateRecorded},
			fmt.Errorf("download succeeded but could not be recorded: %w", err)
	}
	log.Printf("[downloader] ✔ recorded download for %s (%q)", ep.Code, ep.Title)

	o.convertSubtitles(ctx, ep.Code, stem)

	return models.EpisodeResult{Episode: ep, State: models.StateRecorded}, nil
}

// convertSubtitles converts the episode's vtt artifact to srt when one
// exists, removing the vtt regardless of the outcome. Never reopens the
// episode's recorded status.
func (o *Orchestrator) convertSubtitles(ctx context.Context, code, stem string) {
	vtt := filepath.Join(o.OutDir, fmt.Sprintf("%s.%s.vtt", stem, o.Lang))
	srt := filepath.Join(o.OutDir, fmt.Sprintf("%s.%s.srt", stem, o.Lang))

	if _, err := os.Stat(vtt); err != nil {
		log.Printf("[downloader] no vtt subtitle for %s, skipping conversion", code)
		return
	}

	log.Printf("[downloader] converting subtitles for %s...", code)
	if err := o.Converter.Convert(ctx, vtt, srt); err != nil {
		log.Printf("[downloader] ⚠️ subtitle conversion failed for %s (episode stays recorded): %v", code, err)
	} else {
		log.Printf("[downloader] ✓ subtitle conversion successful for %s", code)
	}

	if err := os.Remove(vtt); err != nil && !os.IsNotExist(err) {
		log.Printf("[downloader] ⚠️ could not remove %s: %v", vtt, err)
	}
}
