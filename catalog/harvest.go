package catalog

import (
	"log"
	"time"
)

// Harvester drives the lazy-loading scroll loop for one active range and
// feeds newly revealed cards into a shared Accumulator. All tunables are
// explicit so tests can run with tiny bounds and a fake clock.
type Harvester struct {
	Driver Driver

	// BaseURL resolves relative card hrefs to absolute URLs.
	BaseURL string

	// MaxScrolls bounds the scroll loop.
	MaxScrolls int
	// StagnantLimit is the number of consecutive no-progress steps after
	// which the range is treated as exhausted.
	StagnantLimit int
	// StepFraction is the viewport fraction to advance per scroll step.
	StepFraction float64
	// Pause is the settle time after each scroll step.
	Pause time.Duration
	// ContainerWait bounds the per-step container lookup.
	ContainerWait time.Duration

	// OffsetTolerance is the minimum offset delta counted as movement.
	OffsetTolerance float64
	// BottomTolerance is the slack used when checking for page bottom.
	BottomTolerance float64

	// Sleep defaults to time.Sleep; tests inject a fake.
	Sleep func(time.Duration)
}

// ScrollState tracks one range's progress through the scroll loop.
type ScrollState struct {
	Offset   float64
	Height   float64
	Stagnant int
}

func (h *Harvester) sleep(d time.Duration) {
	if h.Sleep != nil {
		h.Sleep(d)
		return
	}
	time.Sleep(d)
}

// Harvest scrolls the window through the active range, extracting every new
// card inside containerSel into acc. It returns the number of cards added
// in this pass and never fails for soft page errors: only the inability to
// read scroll geometry aborts the loop, and even that aborts just this
// range. Calling it again against the same accumulator is safe - the map is
// keyed by href, so nothing is duplicated.
func (h *Harvester) Harvest(rangeLabel, containerSel, cardSel string, acc *Accumulator) int {
	log.Printf("[catalog] <%s> starting scroll/extract loop", rangeLabel)

	added := 0
	state := ScrollState{}

	for attempt := 0; attempt < h.MaxScrolls; attempt++ {
		before, err := h.Driver.Metrics()
		if err != nil {
			log.Printf("[catalog] <%s> ⚠️ cannot read scroll position: %v - stopping range", rangeLabel, err)
			break
		}
		state.Offset, state.Height = before.Offset, before.Height

		// Re-locate the container each step. Its absence is soft: content
		// may still load from the window scroll alone.
		html, outcome := h.Driver.ContainerHTML(containerSel, h.ContainerWait)
		switch outcome {
		case Found:
			added += h.extractCards(rangeLabel, html, cardSel, acc)
		case NotFound:
			log.Printf("[catalog] <%s> container %q not found this step (may be okay)", rangeLabel, containerSel)
		case Fault:
			log.Printf("[catalog] <%s> transient fault reading container, retrying next step", rangeLabel)
		}

		if err := h.Driver.ScrollBy(h.StepFraction); err != nil {
			log.Printf("[catalog] <%s> ⚠️ scroll step failed: %v - stopping range", rangeLabel, err)
			break
		}
		h.sleep(h.Pause)

		after, err := h.Driver.Metrics()
		if err != nil {
			log.Printf("[catalog] <%s> ⚠️ cannot read scroll position after step: %v - stopping range", rangeLabel, err)
			break
		}

		// Bottom reached ends the range immediately, stagnant or not.
		if after.Offset+after.Viewport >= after.Height-h.BottomTolerance {
			log.Printf("[catalog] <%s> bottom of page reached (y=%.0f h=%.0f)", rangeLabel, after.Offset, after.Height)
			break
		}

		progressed := after.Offset > before.Offset+h.OffsetTolerance || after.Height > before.Height
		if progressed {
			state.Stagnant = 0
			continue
		}

		state.Stagnant++
		if state.Stagnant >= h.StagnantLimit {
			log.Printf("[catalog] <%s> no more loadable content after %d stagnant steps", rangeLabel, state.Stagnant)
			break
		}
	}

	log.Printf("[catalog] <%s> finished: %d new items this pass", rangeLabel, added)
	return added
}
