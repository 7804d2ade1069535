package catalog

import (
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/FlashZ/vix-season-ripper/config"
)

// Selectors for the catalog UI. The class-suffixed ones are build hashes
// from the site's bundler and need refreshing when the site redeploys.
const (
	SeasonChooserSel   = `button[aria-haspopup="listbox"]`
	SeasonOptionSel    = `[role="option"], li`
	RangeChooserSel    = `button[aria-label="Selected Item"]`
	RangeOptionSel     = `ul[role="listbox"] div[role="button"]`
	ScrollContainerSel = `div.ContentList_container__cV53J`
	CardSel            = `a.Card_link__M4ZXt[href]`

	// RangePrefix filters listbox entries down to episode ranges.
	RangePrefix = "Episodios"

	// ImplicitRange labels the single-block catalog shape where no range
	// chooser exists.
	ImplicitRange = "current"
)

// RangeSelector enumerates and activates the catalog's episode sub-ranges
// through the range chooser control, and handles the season listbox.
type RangeSelector struct {
	Driver Driver

	// ChooserPause settles the UI after opening/closing a chooser.
	ChooserPause time.Duration
	// RenderPause waits for the card list to re-render after a selection.
	RenderPause time.Duration
	// RetryPause spaces the retries when clicking an option fails.
	RetryPause time.Duration

	// Sleep defaults to time.Sleep; tests inject a fake.
	Sleep func(time.Duration)
}

func (s *RangeSelector) sleep(d time.Duration) {
	if s.Sleep != nil {
		s.Sleep(d)
		return
	}
	time.Sleep(d)
}

// SelectSeason clicks the season listbox option whose label contains the
// season number as a word. A missing chooser is the single-season case and
// not an error.
func (s *RangeSelector) SelectSeason(season int) {
	if s.Driver.Click(SeasonChooserSel, 7*time.Second) != Found {
		log.Printf("[catalog] no season selector - assuming single season")
		return
	}
	s.sleep(s.ChooserPause)

	labels, outcome := s.Driver.OptionTexts(SeasonOptionSel)
	if outcome != Found {
		log.Printf("[catalog] ⚠️ could not read season options (%s)", outcome)
		return
	}

	want := regexp.MustCompile(fmt.Sprintf(`\b%d\b`, season))
	for _, label := range labels {
		if !want.MatchString(label) {
			continue
		}
		if s.Driver.ClickByText(SeasonOptionSel, label) == Found {
			log.Printf("[catalog] ✓ selected season %d (%q)", season, label)
			s.sleep(s.RenderPause)
		}
		return
	}
	log.Printf("[catalog] ⚠️ season %d not offered by the chooser", season)
}

// EnumerateRanges opens the range chooser, reads every option label with
// the expected prefix and closes the chooser again. When no chooser appears
// within the bound it yields exactly one implicit range - the common
// single-block catalog shape.
func (s *RangeSelector) EnumerateRanges() []string {
	if s.Driver.Click(RangeChooserSel, 10*time.Second) != Found {
		log.Printf("[catalog] no episode range chooser found, treating as single block")
		return []string{ImplicitRange}
	}
	s.sleep(s.ChooserPause)

	labels, outcome := s.Driver.OptionTexts(RangeOptionSel)
	if outcome != Found {
		log.Printf("[catalog] ⚠️ could not read range options (%s), treating as single block", outcome)
		s.closeChooser()
		return []string{ImplicitRange}
	}

	var ranges []string
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if strings.HasPrefix(label, RangePrefix) {
			ranges = append(ranges, label)
		}
	}

	s.closeChooser()

	if len(ranges) == 0 {
		return []string{ImplicitRange}
	}
	log.Printf("[catalog] found %d range options: %v", len(ranges), ranges)
	return ranges
}

func (s *RangeSelector) closeChooser() {
	if s.Driver.Click(RangeChooserSel, 2*time.Second) != Found {
		config.Debugf("[catalog] could not click chooser to close, maybe already closed")
	}
	s.sleep(s.ChooserPause)
}

// SelectRange activates one non-initial range: open chooser, click the
// matching option, wait for the card list to re-render. Returns false when
// the range could not be activated after a few attempts; the caller skips
// the range rather than aborting discovery.
func (s *RangeSelector) SelectRange(label string) bool {
	for attempt := 0; attempt < 3; attempt++ {
		if s.Driver.Click(RangeChooserSel, 5*time.Second) != Found {
			s.sleep(s.RetryPause)
			continue
		}
		s.sleep(s.ChooserPause)

		if s.Driver.ClickByText(RangeOptionSel, label) == Found {
			log.Printf("[catalog] ✓ clicked range option %q, waiting for content load", label)
			s.sleep(s.RenderPause)
			return true
		}
		s.sleep(s.RetryPause)
	}
	return false
}
