package catalog

import "time"

// Outcome classifies a single driver/DOM interaction. Soft page errors are
// data, not Go errors: callers branch on the kind instead of suppressing
// exceptions wholesale.
type Outcome int

const (
	// Found means the interaction located its target and succeeded.
	Found Outcome = iota
	// NotFound means the target element was absent within the bound.
	NotFound
	// Fault means a transient driver-side failure (stale node, lost frame).
	Fault
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case NotFound:
		return "not found"
	default:
		return "fault"
	}
}

// Metrics is a snapshot of the window's scroll geometry.
type Metrics struct {
	Offset   float64 // window.pageYOffset
	Height   float64 // document.body.scrollHeight
	Viewport float64 // window.innerHeight
}

// Driver is the narrow browser-automation surface the discovery engine
// depends on. The chromedp-backed implementation lives in the browser
// package; tests substitute fakes.
type Driver interface {
	// Metrics reads the current scroll geometry. An error here is a
	// session-level fault, fatal to the current range's harvesting.
	Metrics() (Metrics, error)

	// ScrollBy scrolls the window down by fraction of the viewport height.
	ScrollBy(fraction float64) error

	// ContainerHTML returns the outer HTML of the first element matching
	// selector, bounded by timeout.
	ContainerHTML(selector string, timeout time.Duration) (string, Outcome)

	// Click locates the first element matching selector within timeout,
	// scrolls it into view and clicks it.
	Click(selector string, timeout time.Duration) Outcome

	// OptionTexts returns the trimmed text of every element matching
	// selector.
	OptionTexts(selector string) ([]string, Outcome)

	// ClickByText clicks the element matching selector whose trimmed text
	// equals text.
	ClickByText(selector, text string) Outcome
}
