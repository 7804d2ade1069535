// Package catalog implements the incremental content-discovery engine: it
// enumerates the catalog's episode sub-ranges, scroll-harvests each one
// into a deduplicated accumulator and assembles the ordered episode list.
package catalog

import (
	"log"

	"github.com/FlashZ/vix-season-ripper/models"
)

// Collect runs the whole discovery pass: enumerate ranges, activate each
// non-initial one, harvest it into a single shared accumulator. Ranges
// whose selection fails are skipped, never fatal. The returned cards are in
// discovery order; feed them to Assemble for the final ordering.
func Collect(ranges *RangeSelector, harvester *Harvester) []models.EpisodeCard {
	labels := ranges.EnumerateRanges()
	acc := NewAccumulator()

	for _, label := range labels {
		if label != ImplicitRange {
			log.Printf("[catalog] → selecting episode range: %s", label)
			if !ranges.SelectRange(label) {
				log.Printf("[catalog] ⚠️ could not select range %q, skipping", label)
				continue
			}
		}
		harvester.Harvest(label, ScrollContainerSel, CardSel, acc)
	}

	if acc.Len() == 0 {
		log.Printf("[catalog] ⚠️ no episode data could be extracted from any range")
	} else {
		log.Printf("[catalog] total unique episodes extracted: %d", acc.Len())
	}
	return acc.Cards()
}
