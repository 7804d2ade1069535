package downloader_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FlashZ/vix-season-ripper/downloader"
	"github.com/FlashZ/vix-season-ripper/ledger"
	"github.com/FlashZ/vix-season-ripper/models"
)

type fakePage struct {
	navErr    map[string]error
	requests  map[string][]string
	heading   string
	navigated []string
	cleared   int
	pending   []string
	current   string
}

func (p *fakePage) NavigateEpisode(url string) error {
	p.navigated = append(p.navigated, url)
	if err := p.navErr[url]; err != nil {
		return err
	}
	p.current = url
	p.pending = p.requests[url]
	return nil
}

func (p *fakePage) ClearNetworkLog() { p.cleared++; p.pending = nil }

func (p *fakePage) DrainRequests() []string {
	out := p.pending
	p.pending = nil
	return out
}

func (p *fakePage) Heading() (string, error) { return p.heading, nil }

func (p *fakePage) UserAgent() (string, error) { return "Mozilla/5.0 (test)", nil }

func (p *fakePage) CurrentURL() (string, error) { return p.current, nil }

type fakeFetcher struct {
	exitCodes map[string]int
	err       error
	calls     []string
	headers   []map[string]string
}

func (f *fakeFetcher) Fetch(_ context.Context, _, _, saveName, _ string, headers map[string]string) (int, error) {
	f.calls = append(f.calls, saveName)
	f.headers = append(f.headers, headers)
	if f.err != nil {
		return -1, f.err
	}
	return f.exitCodes[saveName], nil
}

type fakeConverter struct {
	calls [][2]string
	err   error
}

func (c *fakeConverter) Convert(_ context.Context, src, dst string) error {
	c.calls = append(c.calls, [2]string{src, dst})
	return c.err
}

func manifestFor(href string) []string {
	return []string{href + "/poster.jpg", href + "/stream/manifest.mpd"}
}

func testEpisodes() []models.Episode {
	return []models.Episode{
		{Code: "S01E001", FileCode: "S01E001", Title: "Uno", Href: "https://vix.example/v/1"},
		{Code: "S01E002", FileCode: "S01E002", Title: "Dos", Href: "https://vix.example/v/2"},
		{Code: "UNK_Especial", FileCode: "S01EUNK_Especial", Title: "Especial", Href: "https://vix.example/v/3"},
	}
}

func newOrchestrator(t *testing.T, dir string, page *fakePage, fetcher *fakeFetcher) (*downloader.Orchestrator, func()) {
	t.Helper()

	led, err := ledger.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	failures, err := ledger.OpenFailureLog(dir)
	if err != nil {
		led.Close()
		t.Fatal(err)
	}

	orch := &downloader.Orchestrator{
		Page:       page,
		Fetcher:    fetcher,
		Converter:  &fakeConverter{},
		Capture:    &downloader.ManifestCapture{},
		Ledger:     led,
		Failures:   failures,
		OutDir:     dir,
		SeriesSlug: "La_Rosa",
		Lang:       "es",
	}
	return orch, func() {
		failures.Close()
		led.Close()
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ""
		}
		t.Fatal(err)
	}
	return string(data)
}

func TestRunRecordsSuccessesAndFailures(t *testing.T) {
	dir := t.TempDir()
	page := &fakePage{requests: map[string][]string{
		"https://vix.example/v/1": manifestFor("https://vix.example/v/1"),
		"https://vix.example/v/2": manifestFor("https://vix.example/v/2"),
		"https://vix.example/v/3": manifestFor("https://vix.example/v/3"),
	}}
	fetcher := &fakeFetcher{exitCodes: map[string]int{"La_Rosa.S01E002": 2}}

	orch, done := newOrchestrator(t, dir, page, fetcher)
	results, err := orch.Run(context.Background(), testEpisodes())
	done()

	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	wantStates := []models.EpisodeState{models.StateRecorded, models.StateFetchFail, models.StateRecorded}
	for i, want := range wantStates {
		if results[i].State != want {
			t.Errorf("results[%d].State = %s, want %s", i, results[i].State, want)
		}
	}
	if results[1].Reason != "DL_FAIL_CODE_2" {
		t.Errorf("results[1].Reason = %q, want DL_FAIL_CODE_2", results[1].Reason)
	}

	// The network log is cleared before each navigation.
	if page.cleared != 3 {
		t.Errorf("network log cleared %d times, want 3", page.cleared)
	}

	csv := readFile(t, filepath.Join(dir, ledger.SuccessLogName))
	if !strings.Contains(csv, "S01E001,Uno,La_Rosa.S01E001.mp4") {
		t.Errorf("success log missing episode 1 row: %q", csv)
	}
	if !strings.Contains(csv, "UNK_Especial,Especial,La_Rosa.S01EUNK_Especial.mp4") {
		t.Errorf("success log missing unknown-code row: %q", csv)
	}
	if strings.Contains(csv, "S01E002") {
		t.Errorf("failed episode leaked into success log: %q", csv)
	}

	failures := readFile(t, filepath.Join(dir, ledger.FailureLogName))
	if failures != "S01E002,https://vix.example/v/2,DL_FAIL_CODE_2\n" {
		t.Errorf("failure log = %q", failures)
	}
}

func TestRunResumesWithoutRedownloading(t *testing.T) {
	dir := t.TempDir()
	requests := map[string][]string{
		"https://vix.example/v/1": manifestFor("https://vix.example/v/1"),
		"https://vix.example/v/2": manifestFor("https://vix.example/v/2"),
		"https://vix.example/v/3": manifestFor("https://vix.example/v/3"),
	}

	// First run: episode 2 fails with a non-zero fetcher exit.
	orch, done := newOrchestrator(t, dir, &fakePage{requests: requests},
		&fakeFetcher{exitCodes: map[string]int{"La_Rosa.S01E002": 2}})
	if _, err := orch.Run(context.Background(), testEpisodes()); err != nil {
		t.Fatal(err)
	}
	done()

	// Second run: only the previously failed episode is retried.
	page := &fakePage{requests: requests}
	fetcher := &fakeFetcher{}
	orch, done = newOrchestrator(t, dir, page, fetcher)
	results, err := orch.Run(context.Background(), testEpisodes())
	done()
	if err != nil {
		t.Fatal(err)
	}

	if len(page.navigated) != 1 || page.navigated[0] != "https://vix.example/v/2" {
		t.Fatalf("second run navigated %v, want only episode 2", page.navigated)
	}
	if len(fetcher.calls) != 1 || fetcher.calls[0] != "La_Rosa.S01E002" {
		t.Fatalf("second run fetched %v, want only La_Rosa.S01E002", fetcher.calls)
	}
	if results[0].State != models.StateSkipped || results[2].State != models.StateSkipped {
		t.Fatalf("completed episodes not skipped: %+v", results)
	}
	if results[1].State != models.StateRecorded {
		t.Fatalf("retried episode state = %s, want recorded", results[1].State)
	}

	csv := readFile(t, filepath.Join(dir, ledger.SuccessLogName))
	if got := strings.Count(strings.TrimSpace(csv), "\n") + 1; got != 3 {
		t.Fatalf("success log has %d rows after resume, want 3: %q", got, csv)
	}
}

func TestRunSkipsAlreadyTrackedWithoutTouchingBrowser(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ledger.SuccessLogName),
		[]byte("S01E001,Uno,La_Rosa.S01E001.mp4\n"), 0644); err != nil {
		t.Fatal(err)
	}

	page := &fakePage{}
	fetcher := &fakeFetcher{}
	orch, done := newOrchestrator(t, dir, page, fetcher)
	defer done()

	results, err := orch.Run(context.Background(), []models.Episode{
		{Code: "S01E001", FileCode: "S01E001", Title: "Uno", Href: "https://vix.example/v/1"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if results[0].State != models.StateSkipped {
		t.Fatalf("state = %s, want skipped", results[0].State)
	}
	if len(page.navigated) != 0 || len(fetcher.calls) != 0 {
		t.Fatal("skipped episode still touched the browser or fetcher")
	}
}

func TestRunMissingFetcherIsFatal(t *testing.T) {
	dir := t.TempDir()
	page := &fakePage{requests: map[string][]string{
		"https://vix.example/v/1": manifestFor("https://vix.example/v/1"),
	}}
	fetcher := &fakeFetcher{err: fmt.Errorf("%w: N_m3u8DL-RE", downloader.ErrFetcherMissing)}

	orch, done := newOrchestrator(t, dir, page, fetcher)
	defer done()

	results, err := orch.Run(context.Background(), testEpisodes())

	if !errors.Is(err, downloader.ErrFetcherMissing) {
		t.Fatalf("Run error = %v, want ErrFetcherMissing", err)
	}
	// The run stops on the first episode; the rest are never attempted.
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if len(page.navigated) != 1 {
		t.Fatalf("navigated %v, want only the first episode", page.navigated)
	}
	// A missing tool is an installation problem, not an episode failure.
	if failures := readFile(t, filepath.Join(dir, ledger.FailureLogName)); failures != "" {
		t.Fatalf("failure log = %q, want empty", failures)
	}
}

func TestRunClassifiesNavigationFailures(t *testing.T) {
	dir := t.TempDir()
	page := &fakePage{
		navErr: map[string]error{
			"https://vix.example/v/1": fmt.Errorf("navigate: %w", context.DeadlineExceeded),
			"https://vix.example/v/2": errors.New("net::ERR_CONNECTION_RESET"),
		},
		requests: map[string][]string{
			"https://vix.example/v/3": manifestFor("https://vix.example/v/3"),
		},
	}

	orch, done := newOrchestrator(t, dir, page, &fakeFetcher{})
	results, err := orch.Run(context.Background(), testEpisodes())
	done()
	if err != nil {
		t.Fatal(err)
	}

	if results[0].Reason != models.ReasonPageLoadTimeout {
		t.Errorf("timeout reason = %q, want %s", results[0].Reason, models.ReasonPageLoadTimeout)
	}
	if results[1].Reason != models.ReasonPageLoadFail {
		t.Errorf("hard-fail reason = %q, want %s", results[1].Reason, models.ReasonPageLoadFail)
	}
	// The loop advances past navigation failures.
	if results[2].State != models.StateRecorded {
		t.Errorf("results[2].State = %s, want recorded", results[2].State)
	}

	failures := readFile(t, filepath.Join(dir, ledger.FailureLogName))
	if !strings.Contains(failures, "S01E001,https://vix.example/v/1,PAGE_LOAD_TIMEOUT") ||
		!strings.Contains(failures, "S01E002,https://vix.example/v/2,PAGE_LOAD_FAIL") {
		t.Errorf("failure log = %q", failures)
	}
}

func TestRunRecordsNoManifestFailure(t *testing.T) {
	dir := t.TempDir()
	// Navigation succeeds but the page never requests a manifest.
	page := &fakePage{requests: map[string][]string{}}

	orch, done := newOrchestrator(t, dir, page, &fakeFetcher{})
	results, err := orch.Run(context.Background(), []models.Episode{
		{Code: "S01E001", FileCode: "S01E001", Title: "Uno", Href: "https://vix.example/v/1"},
	})
	done()
	if err != nil {
		t.Fatal(err)
	}

	if results[0].State != models.StateNoManifest || results[0].Reason != models.ReasonNoManifest {
		t.Fatalf("result = %+v, want no_manifest/NO_MPD", results[0])
	}
	failures := readFile(t, filepath.Join(dir, ledger.FailureLogName))
	if failures != "S01E001,https://vix.example/v/1,NO_MPD\n" {
		t.Fatalf("failure log = %q", failures)
	}
}

func TestRunSkipsMalformedHrefWithoutNavigating(t *testing.T) {
	dir := t.TempDir()
	page := &fakePage{}

	orch, done := newOrchestrator(t, dir, page, &fakeFetcher{})
	defer done()

	results, err := orch.Run(context.Background(), []models.Episode{
		{Code: "S01E001", FileCode: "S01E001", Title: "Uno", Href: "/video/relative"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if results[0].State != models.StateNavFailed {
		t.Fatalf("state = %s, want nav_failed", results[0].State)
	}
	if len(page.navigated) != 0 {
		t.Fatal("navigated to a malformed href")
	}
}

func TestRunPrefersPageHeadingOverCardTitle(t *testing.T) {
	dir := t.TempDir()
	page := &fakePage{
		heading: "La traición",
		requests: map[string][]string{
			"https://vix.example/v/1": manifestFor("https://vix.example/v/1"),
		},
	}

	orch, done := newOrchestrator(t, dir, page, &fakeFetcher{})
	_, err := orch.Run(context.Background(), []models.Episode{
		{Code: "S01E001", FileCode: "S01E001", Title: "Episodio", Href: "https://vix.example/v/1"},
	})
	done()
	if err != nil {
		t.Fatal(err)
	}

	csv := readFile(t, filepath.Join(dir, ledger.SuccessLogName))
	if !strings.Contains(csv, "S01E001,La traición,") {
		t.Fatalf("success log did not pick up the page heading: %q", csv)
	}
}

func TestRunPassesBrowserIdentityToFetcher(t *testing.T) {
	dir := t.TempDir()
	page := &fakePage{requests: map[string][]string{
		"https://vix.example/v/1": manifestFor("https://vix.example/v/1"),
	}}
	fetcher := &fakeFetcher{}

	orch, done := newOrchestrator(t, dir, page, fetcher)
	_, err := orch.Run(context.Background(), []models.Episode{
		{Code: "S01E001", FileCode: "S01E001", Title: "Uno", Href: "https://vix.example/v/1"},
	})
	done()
	if err != nil {
		t.Fatal(err)
	}

	if len(fetcher.headers) != 1 {
		t.Fatalf("fetcher called %d times, want 1", len(fetcher.headers))
	}
	h := fetcher.headers[0]
	if h["User-Agent"] != "Mozilla/5.0 (test)" {
		t.Errorf("User-Agent = %q", h["User-Agent"])
	}
	if h["Referer"] != "https://vix.example/v/1" {
		t.Errorf("Referer = %q", h["Referer"])
	}
}

func TestRunPreflightIsAdvisory(t *testing.T) {
	dir := t.TempDir()
	page := &fakePage{requests: map[string][]string{
		"https://vix.example/v/1": manifestFor("https://vix.example/v/1"),
	}}
	fetcher := &fakeFetcher{}

	orch, done := newOrchestrator(t, dir, page, fetcher)
	orch.Preflight = func(manifestURL, userAgent, referer string) error {
		return errors.New("403 from probe")
	}
	results, err := orch.Run(context.Background(), []models.Episode{
		{Code: "S01E001", FileCode: "S01E001", Title: "Uno", Href: "https://vix.example/v/1"},
	})
	done()
	if err != nil {
		t.Fatal(err)
	}

	if len(fetcher.calls) != 1 {
		t.Fatal("failed preflight prevented the fetch")
	}
	if results[0].State != models.StateRecorded {
		t.Fatalf("state = %s, want recorded", results[0].State)
	}
}

func TestRunStopsOnContextCancellation(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	orch, done := newOrchestrator(t, dir, &fakePage{}, &fakeFetcher{})
	defer done()

	results, err := orch.Run(ctx, testEpisodes())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if len(results) != 0 {
		t.Fatalf("got %d results after cancellation, want 0", len(results))
	}
}

func TestSubtitleConversionFailureKeepsEpisodeRecorded(t *testing.T) {
	dir := t.TempDir()
	vtt := filepath.Join(dir, "La_Rosa.S01E001.es.vtt")
	if err := os.WriteFile(vtt, []byte("WEBVTT\n"), 0644); err != nil {
		t.Fatal(err)
	}

	page := &fakePage{requests: map[string][]string{
		"https://vix.example/v/1": manifestFor("https://vix.example/v/1"),
	}}
	converter := &fakeConverter{err: errors.New("ffmpeg exploded")}

	orch, done := newOrchestrator(t, dir, page, &fakeFetcher{})
	orch.Converter = converter
	results, err := orch.Run(context.Background(), []models.Episode{
		{Code: "S01E001", FileCode: "S01E001", Title: "Uno", Href: "https://vix.example/v/1"},
	})
	done()
	if err != nil {
		t.Fatal(err)
	}

	if results[0].State != models.StateRecorded {
		t.Fatalf("state = %s, want recorded despite conversion failure", results[0].State)
	}
	if len(converter.calls) != 1 {
		t.Fatalf("converter called %d times, want 1", len(converter.calls))
	}
	// The vtt is removed no matter how the conversion went.
	if _, err := os.Stat(vtt); !os.IsNotExist(err) {
		t.Fatal("vtt artifact left behind after failed conversion")
	}
	csv := readFile(t, filepath.Join(dir, ledger.SuccessLogName))
	if !strings.Contains(csv, "S01E001") {
		t.Fatalf("episode missing from success log: %q", csv)
	}
}
