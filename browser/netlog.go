package browser

import "sync"

// RequestLog accumulates the URL of every outbound request the page makes.
// The chromedp event listener appends from the browser's goroutine while
// the manifest capturer drains from the run's goroutine, so access is
// mutex-guarded. Draining empties the log, mirroring how a performance log
// read consumes its entries.
type RequestLog struct {
	mu   sync.Mutex
	urls []string
}

func (l *RequestLog) append(url string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.urls = append(l.urls, url)
}

// Drain returns all accumulated URLs and empties the log.
func (l *RequestLog) Drain() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.urls
	l.urls = nil
	return out
}

// Clear discards everything accumulated so far.
func (l *RequestLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.urls = nil
}
