package catalog

import (
	"github.com/FlashZ/vix-season-ripper/models"
)

// Accumulator is the shared harvest map: one entry per unique absolute
// href, first successful extraction wins, insertion order preserved so the
// assembler's sort can break ties stably. It also tracks hrefs whose
// extraction failed, so persistently malformed cards are never retried.
type Accumulator struct {
	cards map[string]models.EpisodeCard
	order []string
	seen  map[string]struct{}
}

// NewAccumulator returns an empty accumulator. One is created per run and
// shared across every range's harvest pass.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		cards: make(map[string]models.EpisodeCard),
		seen:  make(map[string]struct{}),
	}
}

// Add inserts a card keyed by its href. Returns false without overwriting
// if the href is already present.
func (a *Accumulator) Add(card models.EpisodeCard) bool {
	if _, exists := a.cards[card.Href]; exists {
		return false
	}
	a.cards[card.Href] = card
	a.order = append(a.order, card.Href)
	return true
}

// Has reports whether href already holds a successfully extracted card.
func (a *Accumulator) Has(href string) bool {
	_, ok := a.cards[href]
	return ok
}

// MarkSeen records an href whose extraction failed so it is skipped on
// every later pass.
func (a *Accumulator) MarkSeen(href string) {
	a.seen[href] = struct{}{}
}

// Seen reports whether href was marked as a failed extraction.
func (a *Accumulator) Seen(href string) bool {
	_, ok := a.seen[href]
	return ok
}

// Cards returns the harvested cards in insertion order.
func (a *Accumulator) Cards() []models.EpisodeCard {
	out := make([]models.EpisodeCard, 0, len(a.order))
	for _, href := range a.order {
		out = append(out, a.cards[href])
	}
	return out
}

// Len returns the number of harvested cards.
func (a *Accumulator) Len() int {
	return len(a.cards)
}
