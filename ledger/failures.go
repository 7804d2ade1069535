package ledger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// FailureLogName is the failure log file kept in the output directory.
const FailureLogName = "failures.log"

// FailureLog is the durable record of episodes needing manual follow-up:
// one "code,url,reason" row per failed episode, append-only across runs.
type FailureLog struct {
	file *os.File
}

// OpenFailureLog opens (or creates) the failure log for appending.
func OpenFailureLog(outDir string) (*FailureLog, error) {
	path := filepath.Join(outDir, FailureLogName)
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open failure log: %w", err)
	}
	return &FailureLog{file: file}, nil
}

// Append records one failure and syncs it to disk. Write errors are logged
// rather than propagated: a failing failure log must not take down the run.
func (f *FailureLog) Append(code, url, reason string) {
	if _, err := fmt.Fprintf(f.file, "%s,%s,%s\n", code, url, reason); err != nil {
		log.Printf("[ledger] ⚠️ could not append to failure log: %v", err)
		return
	}
	if err := f.file.Sync(); err != nil {
		log.Printf("[ledger] ⚠️ could not sync failure log: %v", err)
	}
}

// Close closes the failure log file.
func (f *FailureLog) Close() error {
	return f.file.Close()
}
