package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/FlashZ/vix-season-ripper/models"
)

var epNumberPattern = regexp.MustCompile(`(?i)EP\.?\s*(\d+)`)

// ExtractCardMeta pulls the episode number and title out of a card's text.
// The card text is whitespace-collapsed first because the DOM renders the
// label across several lines. A missing "EP. n" marker yields an unknown
// number; a title that is nothing but the marker falls back to "Episode".
func ExtractCardMeta(raw string) (models.EpisodeNumber, string) {
	flat := strings.Join(strings.Fields(raw), " ")

	num := models.UnknownNumber()
	if m := epNumberPattern.FindStringSubmatch(flat); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			num = models.Number(v)
		}
	}

	title := strings.TrimSpace(epNumberPattern.ReplaceAllString(flat, ""))
	if title == "" {
		title = "Episode"
	}

	return num, title
}

// GenericTitle reports whether a title carries no real information. A card
// whose number is unknown AND whose title is generic failed extraction.
func GenericTitle(title string) bool {
	if title == "" || title == "Episode" {
		return true
	}
	return strings.Contains(title, "Unknown")
}
