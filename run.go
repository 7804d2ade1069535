package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/FlashZ/vix-season-ripper/browser"
	"github.com/FlashZ/vix-season-ripper/catalog"
	"github.com/FlashZ/vix-season-ripper/config"
	"github.com/FlashZ/vix-season-ripper/downloader"
	"github.com/FlashZ/vix-season-ripper/ledger"
	"github.com/FlashZ/vix-season-ripper/models"
	"github.com/FlashZ/vix-season-ripper/parser"
)

// The catalog page's document title must contain this before discovery
// starts.
const siteTitleToken = "ViX"

const catalogTitleTimeout = 20 * time.Second

func newRunCommand() *cobra.Command {
	opts := config.Defaults()

	cmd := &cobra.Command{
		Use:   "run <catalog-url>",
		Short: "Discover the season's episodes and download them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.URL = args[0]
			if opts.OutDir == "" {
				wd, err := os.Getwd()
				if err != nil {
					return err
				}
				opts.OutDir = wd
			}
			return runRipper(cmd.Context(), opts)
		},
	}

	cmd.Flags().IntVar(&opts.Season, "season", opts.Season, "Season number for episode codes")
	cmd.Flags().StringVar(&opts.Lang, "lang", opts.Lang, "Audio/subtitle language code")
	cmd.Flags().StringVar(&opts.OutDir, "out", "", "Output directory (default: working directory)")
	cmd.Flags().BoolVar(&opts.Headless, "headless", false, "Run the browser headless")
	cmd.Flags().BoolVar(&opts.Debug, "debug", false, "Enable debug logging")
	cmd.Flags().IntVar(&opts.MaxScrolls, "max-scrolls", opts.MaxScrolls, "Scroll step bound per range")
	cmd.Flags().IntVar(&opts.StagnantLimit, "stagnant-limit", opts.StagnantLimit, "Consecutive no-progress steps before a range is exhausted")
	cmd.Flags().DurationVar(&opts.ScrollPause, "scroll-pause", opts.ScrollPause, "Settle time after each scroll step")
	cmd.Flags().DurationVar(&opts.ManifestTimeout, "manifest-timeout", opts.ManifestTimeout, "How long to wait for a manifest request per episode")
	cmd.Flags().DurationVar(&opts.PollInterval, "poll-interval", opts.PollInterval, "Network log polling interval")
	cmd.Flags().DurationVar(&opts.EpisodeDelay, "episode-delay", opts.EpisodeDelay, "Delay between episodes")
	cmd.Flags().IntVar(&opts.Threads, "threads", opts.Threads, "Fetch utility thread count")

	return cmd
}

func runRipper(parent context.Context, opts config.Options) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(opts.OutDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	closeLog, err := config.InitLogging(opts.OutDir, opts.Debug)
	if err != nil {
		return err
	}
	defer closeLog()

	lock, err := ledger.AcquireLock(opts.OutDir)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	led, err := ledger.Open(opts.OutDir)
	if err != nil {
		return err
	}
	defer led.Close()
	if led.Count() > 0 {
		log.Printf("[run] resuming - %d episodes already tracked or downloaded", led.Count())
	}

	failures, err := ledger.OpenFailureLog(opts.OutDir)
	if err != nil {
		return err
	}
	defer failures.Close()

	session, err := browser.NewSession(ctx, browser.SessionOptions{
		Headless: opts.Headless,
		Lang:     opts.Lang,
	})
	if err != nil {
		return err
	}
	defer session.Close()

	if err := session.NavigateCatalog(opts.URL, siteTitleToken, catalogTitleTimeout); err != nil {
		return err
	}

	ranges := &catalog.RangeSelector{
		Driver:       session,
		ChooserPause: 800 * time.Millisecond,
		RenderPause:  3 * time.Second,
		RetryPause:   600 * time.Millisecond,
	}
	ranges.SelectSeason(opts.Season)

	series := seriesSlug(session)
	log.Printf("[run] series detected: %s", series)

	harvester := &catalog.Harvester{
		Driver:          session,
		BaseURL:         opts.URL,
		MaxScrolls:      opts.MaxScrolls,
		StagnantLimit:   opts.StagnantLimit,
		StepFraction:    0.8,
		Pause:           opts.ScrollPause,
		ContainerWait:   3 * time.Second,
		OffsetTolerance: 5,
		BottomTolerance: 10,
	}

	cards := catalog.Collect(ranges, harvester)
	episodes := catalog.Assemble(cards, opts.Season)
	log.Printf("[run] %d unique episodes collected for download", len(episodes))
	if len(episodes) == 0 {
		log.Printf("[run] ⚠️ no episodes collected, exiting")
		return nil
	}

	orch := &downloader.Orchestrator{
		Page:      session,
		Fetcher:   &downloader.CommandFetcher{Threads: opts.Threads},
		Converter: &downloader.FFmpegConverter{},
		Capture: &downloader.ManifestCapture{
			Timeout:  opts.ManifestTimeout,
			Interval: opts.PollInterval,
		},
		Ledger:       led,
		Failures:     failures,
		OutDir:       opts.OutDir,
		SeriesSlug:   series,
		Lang:         opts.Lang,
		EpisodeDelay: opts.EpisodeDelay,
		Preflight:    downloader.ProbeManifest,
	}

	results, runErr := orch.Run(ctx, episodes)
	printSummary(results)
	return runErr
}

// seriesSlug derives the output filename prefix from the catalog page
// title.
func seriesSlug(session *browser.Session) string {
	title, err := session.Title()
	if err != nil {
		log.Printf("[run] ⚠️ could not read page title: %v", err)
		return "Unknown_Series"
	}
	slug := parser.Slug(parser.CleanSeriesTitle(title))
	if slug == "" {
		return "Unknown_Series"
	}
	return slug
}

func printSummary(results []models.EpisodeResult) {
	if len(results) == 0 {
		return
	}

	var skipped, recorded, failed int

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Code", "Title", "State", "Reason"})
	for _, r := range results {
		t.AppendRow(table.Row{r.Episode.Code, r.Episode.Title, r.State, r.Reason})
		switch r.State {
		case models.StateSkipped:
			skipped++
		case models.StateRecorded:
			recorded++
		default:
			failed++
		}
	}
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d downloaded", recorded),
		fmt.Sprintf("%d skipped / %d failed", skipped, failed)})
	t.Render()
}
