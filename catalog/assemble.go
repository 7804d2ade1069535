package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/FlashZ/vix-season-ripper/models"
	"github.com/FlashZ/vix-season-ripper/parser"
)

// How much of a title feeds a synthesized code when the number is unknown.
const unknownSlugLen = 30

// Assemble turns harvested cards into the ordered episode list. Known
// numbers sort ascending, unknown numbers go to the tail keeping their
// discovery order, and each entry gets its resume code: S{ss}E{nnn} when
// the number is known, UNK_{slug} otherwise. Synthesized codes that would
// collide get a discovery-order counter appended so two similarly titled
// unknown episodes are never confused with each other. The input is never
// mutated and an empty input yields an empty list.
func Assemble(cards []models.EpisodeCard, season int) []models.Episode {
	sorted := make([]models.EpisodeCard, len(cards))
	copy(sorted, cards)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Number, sorted[j].Number
		if a.Known && b.Known {
			return a.Value < b.Value
		}
		return a.Known && !b.Known
	})

	used := make(map[string]struct{}, len(sorted))
	episodes := make([]models.Episode, 0, len(sorted))
	for _, card := range sorted {
		var code, fileCode string
		if card.Number.Known {
			code = uniqueCode(fmt.Sprintf("S%02dE%03d", season, card.Number.Value), used)
			fileCode = code
		} else {
			code = uniqueCode("UNK_"+parser.Slug(parser.Truncate(card.Title, unknownSlugLen)), used)
			fileCode = fmt.Sprintf("S%02dE%s", season, code)
		}
		episodes = append(episodes, models.Episode{
			Code:     code,
			FileCode: fileCode,
			Title:    card.Title,
			Href:     card.Href,
			Number:   card.Number,
		})
	}
	return episodes
}

func uniqueCode(base string, used map[string]struct{}) string {
	code := base
	for n := 2; ; n++ {
		if _, taken := used[strings.ToUpper(code)]; !taken {
			break
		}
		code = fmt.Sprintf("%s_%d", base, n)
	}
	used[strings.ToUpper(code)] = struct{}{}
	return code
}
