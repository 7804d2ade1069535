// Package browser wraps a single chromedp session behind the narrow driver
// surface the discovery engine and the download orchestrator consume.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/FlashZ/vix-season-ripper/catalog"
	"github.com/FlashZ/vix-season-ripper/config"
)

const (
	evalTimeout    = 5 * time.Second
	clickPoll      = 250 * time.Millisecond
	navTimeout     = 60 * time.Second
	episodeTimeout = 15 * time.Second
	// settleDelay gives the player page a moment to start issuing its
	// media requests after the heading appears.
	settleDelay = 2 * time.Second
)

// Session manages one chromedp browser context for the whole run. It
// implements catalog.Driver and the orchestrator's page surface.
type Session struct {
	ctx       context.Context
	cancel    context.CancelFunc
	netlog    *RequestLog
	userAgent string
}

// SessionOptions configures the browser process.
type SessionOptions struct {
	Headless bool
	Lang     string
}

// NewSession launches the browser and starts recording network requests.
func NewSession(parent context.Context, opts SessionOptions) (*Session, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("lang", opts.Lang),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	session := &Session{
		ctx:    browserCtx,
		cancel: func() { cancelBrowser(); cancelAlloc() },
		netlog: &RequestLog{},
	}

	// Starting the browser and enabling network events in one Run keeps
	// the listener attached before any page activity.
	if err := chromedp.Run(browserCtx, network.Enable()); err != nil {
		session.cancel()
		return nil, fmt.Errorf("failed to start browser session: %w", err)
	}

	chromedp.ListenTarget(browserCtx, func(ev interface{}) {
		if e, ok := ev.(*network.EventRequestWillBeSent); ok && e.Request != nil {
			session.netlog.append(e.Request.URL)
		}
	})

	return session, nil
}

// Close tears down the browser session.
func (s *Session) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Session) run(timeout time.Duration, actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

// NavigateCatalog loads the catalog page and waits until the document
// title contains titleToken, bounded by timeout. Failing this is fatal to
// the run - nothing can be discovered from a page that never loaded.
func (s *Session) NavigateCatalog(url, titleToken string, timeout time.Duration) error {
	if err := s.run(navTimeout, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("catalog navigation failed: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for {
		title, err := s.Title()
		if err == nil && strings.Contains(title, titleToken) {
			log.Printf("[browser] ✓ page loaded: %s", title)
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("page load timed out waiting for title containing %q", titleToken)
		}
		time.Sleep(500 * time.Millisecond)
	}
}

// NavigateEpisode loads an episode page and waits for its heading to be
// present, then pauses briefly so the player starts up. The returned error
// wraps context.DeadlineExceeded on a load timeout, which the orchestrator
// classifies separately from session faults.
func (s *Session) NavigateEpisode(url string) error {
	if err := s.run(episodeTimeout, chromedp.Navigate(url), chromedp.WaitReady("h1, h2", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("episode navigation failed: %w", err)
	}
	time.Sleep(settleDelay)
	return nil
}

// Title returns the current document title.
func (s *Session) Title() (string, error) {
	var title string
	if err := s.run(evalTimeout, chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("failed to read page title: %w", err)
	}
	return title, nil
}

// CurrentURL returns the page's current location.
func (s *Session) CurrentURL() (string, error) {
	var loc string
	if err := s.run(evalTimeout, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("failed to read current URL: %w", err)
	}
	return loc, nil
}

// Heading returns the text of the first h1/h2 on the page, empty when none
// exists. Soft: callers treat an error as "no heading".
func (s *Session) Heading() (string, error) {
	var heading string
	js := `(() => { const el = document.querySelector('h1, h2'); return el ? (el.innerText || '').trim() : ''; })()`
	if err := s.run(evalTimeout, chromedp.Evaluate(js, &heading)); err != nil {
		return "", fmt.Errorf("failed to read page heading: %w", err)
	}
	return heading, nil
}

// UserAgent reads (and caches) the browser's real user agent for the
// external fetcher's request headers.
func (s *Session) UserAgent() (string, error) {
	if s.userAgent != "" {
		return s.userAgent, nil
	}
	var ua string
	if err := s.run(evalTimeout, chromedp.Evaluate(`navigator.userAgent`, &ua)); err != nil {
		return "", fmt.Errorf("failed to read user agent: %w", err)
	}
	s.userAgent = ua
	return ua, nil
}

// ClearNetworkLog discards requests recorded so far. The orchestrator
// calls it immediately before each episode navigation.
func (s *Session) ClearNetworkLog() {
	s.netlog.Clear()
}

// DrainRequests returns and consumes the accumulated request URLs.
func (s *Session) DrainRequests() []string {
	return s.netlog.Drain()
}

// ---- catalog.Driver ----

// Metrics reads the window's scroll geometry in one evaluation.
func (s *Session) Metrics() (catalog.Metrics, error) {
	var vals []float64
	js := `[window.pageYOffset, document.body.scrollHeight, window.innerHeight]`
	if err := s.run(evalTimeout, chromedp.Evaluate(js, &vals)); err != nil {
		return catalog.Metrics{}, fmt.Errorf("failed to read scroll metrics: %w", err)
	}
	if len(vals) != 3 {
		return catalog.Metrics{}, fmt.Errorf("unexpected scroll metrics shape: %v", vals)
	}
	return catalog.Metrics{Offset: vals[0], Height: vals[1], Viewport: vals[2]}, nil
}

// ScrollBy advances the window by fraction of the viewport height.
func (s *Session) ScrollBy(fraction float64) error {
	js := fmt.Sprintf(`window.scrollBy(0, window.innerHeight * %g); true`, fraction)
	var ok bool
	if err := s.run(evalTimeout, chromedp.Evaluate(js, &ok)); err != nil {
		return fmt.Errorf("scroll step failed: %w", err)
	}
	return nil
}

// ContainerHTML snapshots the outer HTML of the first match for selector.
func (s *Session) ContainerHTML(selector string, timeout time.Duration) (string, catalog.Outcome) {
	var html string
	err := s.run(timeout, chromedp.OuterHTML(selector, &html, chromedp.ByQuery))
	switch {
	case err == nil:
		return html, catalog.Found
	case errors.Is(err, context.DeadlineExceeded):
		return "", catalog.NotFound
	default:
		config.Debugf("[browser] container lookup fault for %q: %v", selector, err)
		return "", catalog.Fault
	}
}

// Click polls for the first match of selector until timeout, then clicks
// it through JavaScript (the site swallows synthetic pointer events on
// some controls, so a JS click is the reliable path).
func (s *Session) Click(selector string, timeout time.Duration) catalog.Outcome {
	js := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return false;
		el.scrollIntoView({block: 'center'});
		el.click();
		return true;
	})()`, jsString(selector))

	deadline := time.Now().Add(timeout)
	for {
		var clicked bool
		err := s.run(evalTimeout, chromedp.Evaluate(js, &clicked))
		if err == nil && clicked {
			return catalog.Found
		}
		if time.Now().After(deadline) {
			if err != nil {
				config.Debugf("[browser] click fault for %q: %v", selector, err)
				return catalog.Fault
			}
			return catalog.NotFound
		}
		time.Sleep(clickPoll)
	}
}

// OptionTexts returns the trimmed visible text of every match for selector.
func (s *Session) OptionTexts(selector string) ([]string, catalog.Outcome) {
	js := fmt.Sprintf(`Array.from(document.querySelectorAll(%s))
		.map(el => (el.innerText || '').trim())
		.filter(t => t.length > 0)`, jsString(selector))

	var texts []string
	if err := s.run(evalTimeout, chromedp.Evaluate(js, &texts)); err != nil {
		config.Debugf("[browser] option read fault for %q: %v", selector, err)
		return nil, catalog.Fault
	}
	if len(texts) == 0 {
		return nil, catalog.NotFound
	}
	return texts, catalog.Found
}

// ClickByText clicks the match of selector whose trimmed text equals text.
func (s *Session) ClickByText(selector, text string) catalog.Outcome {
	js := fmt.Sprintf(`(() => {
		const want = %s;
		for (const el of document.querySelectorAll(%s)) {
			if ((el.innerText || '').trim() === want) {
				el.scrollIntoView({block: 'center'});
				el.click();
				return true;
			}
		}
		return false;
	})()`, jsString(text), jsString(selector))

	var clicked bool
	if err := s.run(evalTimeout, chromedp.Evaluate(js, &clicked)); err != nil {
		config.Debugf("[browser] click-by-text fault for %q: %v", text, err)
		return catalog.Fault
	}
	if !clicked {
		return catalog.NotFound
	}
	return catalog.Found
}

// jsString embeds a Go string into generated JavaScript as a quoted
// literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
