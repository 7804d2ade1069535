// Package config holds the immutable run configuration parsed once at
// startup, plus run-log setup.
package config

import (
	"log"
	"time"
)

// Version of the ripper, stamped into the CLI.
const Version = "1.0.0"

// Options is the run configuration. Built once from CLI flags and threaded
// through as a value; nothing mutates it after startup.
type Options struct {
	URL      string
	Season   int
	Lang     string
	OutDir   string
	Headless bool
	Debug    bool

	// Discovery tunables.
	MaxScrolls    int
	StagnantLimit int
	ScrollPause   time.Duration

	// Download tunables.
	ManifestTimeout time.Duration
	PollInterval    time.Duration
	EpisodeDelay    time.Duration
	Threads         int
}

// Defaults returns the options preset that matches the site's observed
// rendering behavior.
func Defaults() Options {
	return Options{
		Season:          1,
		Lang:            "es",
		MaxScrolls:      60,
		StagnantLimit:   5,
		ScrollPause:     2 * time.Second,
		ManifestTimeout: 45 * time.Second,
		PollInterval:    300 * time.Millisecond,
		EpisodeDelay:    2 * time.Second,
		Threads:         8,
	}
}

var debugEnabled bool

// SetDebug toggles debug logging for the whole process.
func SetDebug(enabled bool) {
	debugEnabled = enabled
}

// Debugf logs only when --debug is set.
func Debugf(format string, args ...interface{}) {
	if debugEnabled {
		log.Printf("DEBUG: "+format, args...)
	}
}
