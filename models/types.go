package models

import "fmt"

// EpisodeNumber is an optional episode number. Extraction from a card can
// fail, in which case the number is unknown and the episode sorts last.
type EpisodeNumber struct {
	Value int
	Known bool
}

// Number returns a known episode number.
func Number(n int) EpisodeNumber {
	return EpisodeNumber{Value: n, Known: true}
}

// UnknownNumber returns the "extraction failed" number.
func UnknownNumber() EpisodeNumber {
	return EpisodeNumber{}
}

func (n EpisodeNumber) String() string {
	if !n.Known {
		return "unknown"
	}
	return fmt.Sprintf("%d", n.Value)
}

// EpisodeCard is one harvested catalog item. Href is the absolute URL of
// the episode page and the unique key across the whole discovery pass.
type EpisodeCard struct {
	Number EpisodeNumber
	Title  string
	Href   string
}

// Episode is an assembled, downloadable entry. Code is the resume/identity
// key: "S{season:02d}E{number:03d}" for known numbers, "UNK_<slug>" (with a
// discovery-order counter on collision) otherwise.
type Episode struct {
	Code string
	// FileCode is the season/episode token used in output filenames. It
	// matches Code for known numbers and is "S{season:02d}E{Code}" for
	// synthesized unknown codes.
	FileCode string
	Title    string
	Href     string
	Number   EpisodeNumber
}

// Failure reason tags written to the failure log, one per failed episode.
const (
	ReasonPageLoadTimeout = "PAGE_LOAD_TIMEOUT"
	ReasonPageLoadFail    = "PAGE_LOAD_FAIL"
	ReasonNoManifest      = "NO_MPD"
	ReasonFetchException  = "DL_EXCEPTION"
)

// FetchFailReason builds the reason tag for a non-zero fetcher exit.
func FetchFailReason(exitCode int) string {
	return fmt.Sprintf("DL_FAIL_CODE_%d", exitCode)
}

// EpisodeState is the terminal state an episode reached in one run.
type EpisodeState string

const (
	StateSkipped    EpisodeState = "skipped"
	StateNavFailed  EpisodeState = "nav_failed"
	StateNoManifest EpisodeState = "no_manifest"
	StateFetchFail  EpisodeState = "fetch_failed"
	StateRecorded   EpisodeState = "recorded"
)

// EpisodeResult pairs an episode with its terminal state for the run
// summary table.
type EpisodeResult struct {
	Episode Episode
	State   EpisodeState
	Reason  string
}
