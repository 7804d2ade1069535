package catalog

import (
	"log"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/FlashZ/vix-season-ripper/config"
	"github.com/FlashZ/vix-season-ripper/models"
	"github.com/FlashZ/vix-season-ripper/parser"
)

// Episode metadata lives on the nearest ancestor the site renders as a
// clickable card wrapper.
const cardWrapperSel = `div[role="button"]`

// extractCards parses one container snapshot and adds every new card to
// acc. Cards that fail extraction are marked seen so they are never
// retried against the same malformed markup.
func (h *Harvester) extractCards(rangeLabel, containerHTML, cardSel string, acc *Accumulator) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(containerHTML))
	if err != nil {
		log.Printf("[catalog] <%s> ⚠️ could not parse container snapshot: %v", rangeLabel, err)
		return 0
	}

	added := 0
	doc.Find(cardSel).Each(func(_ int, link *goquery.Selection) {
		href, ok := link.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			return
		}

		abs := absoluteHref(h.BaseURL, href)
		if acc.Has(abs) || acc.Seen(abs) {
			return
		}

		wrapper := link.Closest(cardWrapperSel)
		if wrapper.Length() == 0 {
			log.Printf("[catalog] <%s> ⚠️ no card wrapper ancestor for %s - structure may differ", rangeLabel, href)
			acc.MarkSeen(abs)
			return
		}

		num, title := parser.ExtractCardMeta(wrapper.Text())
		if !num.Known && parser.GenericTitle(title) {
			log.Printf("[catalog] <%s> ⚠️ metadata extraction failed for %s (num=%s title=%q)", rangeLabel, abs, num, title)
			acc.MarkSeen(abs)
			return
		}

		if acc.Add(models.EpisodeCard{Number: num, Title: title, Href: abs}) {
			config.Debugf("[catalog] <%s> extracted num=%s title=%q href=%s", rangeLabel, num, title, abs)
			added++
		}
	})

	return added
}

// absoluteHref resolves a card href against the catalog page URL. An href
// that cannot be parsed is returned as-is; the orchestrator skips
// non-absolute links before navigating.
func absoluteHref(base, href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}
