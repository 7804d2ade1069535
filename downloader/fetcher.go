package downloader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/FlashZ/vix-season-ripper/config"
)

// DefaultFetcherBinary is the external media-fetch utility.
const DefaultFetcherBinary = "N_m3u8DL-RE"

// ErrFetcherMissing means the fetch utility is not installed / not on
// PATH. Fatal to the whole run: no further episode can succeed without it.
var ErrFetcherMissing = errors.New("fetch utility not found on PATH")

// Fetcher invokes the external media-fetch utility for one manifest.
// Returns the process exit code; a non-zero code is a per-episode failure,
// a non-nil error is an invocation problem.
type Fetcher interface {
	Fetch(ctx context.Context, manifestURL, saveDir, saveName, lang string, headers map[string]string) (int, error)
}

// CommandFetcher runs N_m3u8DL-RE as a subprocess, selecting best video,
// best audio for the language, the language's subtitle track, and cleaning
// up intermediate files itself.
type CommandFetcher struct {
	Binary  string // defaults to DefaultFetcherBinary
	Threads int
}

func (f *CommandFetcher) Fetch(ctx context.Context, manifestURL, saveDir, saveName, lang string, headers map[string]string) (int, error) {
	binary := f.Binary
	if binary == "" {
		binary = DefaultFetcherBinary
	}
	threads := f.Threads
	if threads <= 0 {
		threads = 8
	}

	args := []string{
		manifestURL,
		"--save-dir", saveDir,
		"--save-name", saveName,
		"--thread-count", strconv.Itoa(threads),
		"-sv", "best",
		"-sa", "best:lang=" + lang,
		"-ss", lang,
		"--del-after-done",
	}

	// Sorted so the invocation is reproducible across runs.
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--header", k+": "+headers[k])
	}

	config.Debugf("EXEC: %s %s", binary, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return 0, nil
	case errors.As(err, &exitErr):
		return exitErr.ExitCode(), nil
	case errors.Is(err, exec.ErrNotFound):
		return -1, fmt.Errorf("%w: %s", ErrFetcherMissing, binary)
	default:
		return -1, fmt.Errorf("failed to run fetch utility: %w", err)
	}
}
