// Package ledger persists which episodes already completed, making re-runs
// idempotent. The success log is an append-only CSV (code, title, output
// filename); completed episodes are additionally recognized from S##E###
// tokens in filenames already present in the output directory.
package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// SuccessLogName is the success log file kept in the output directory.
const SuccessLogName = "titles.csv"

var codePattern = regexp.MustCompile(`(?i)(S\d{2}E\d{3})`)

// Ledger is the run's resume state: a set of completed codes plus an open
// appender for the success log. Owned by the orchestrator, single
// goroutine, never shrinks within a run.
type Ledger struct {
	done   map[string]struct{}
	file   *os.File
	writer *csv.Writer
}

// Open builds the completed set from the success log and from media files
// already present in outDir, then opens the log for appending. The log is
// never truncated.
func Open(outDir string) (*Ledger, error) {
	csvPath := filepath.Join(outDir, SuccessLogName)

	done := make(map[string]struct{})
	if err := readCodes(csvPath, done); err != nil {
		return nil, err
	}
	if err := scanOutputs(outDir, done); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(csvPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open success log: %w", err)
	}

	return &Ledger{
		done:   done,
		file:   file,
		writer: csv.NewWriter(file),
	}, nil
}

// readCodes loads the first column of every existing success-log row.
func readCodes(csvPath string, done map[string]struct{}) error {
	file, err := os.Open(csvPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read success log: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A torn trailing row from a crashed run is not fatal.
			log.Printf("[ledger] ⚠️ skipping malformed success log row: %v", err)
			continue
		}
		if len(row) > 0 && strings.TrimSpace(row[0]) != "" {
			done[strings.ToUpper(strings.TrimSpace(row[0]))] = struct{}{}
		}
	}
	return nil
}

// scanOutputs recognizes completed episodes from media files whose names
// carry an S##E### token.
func scanOutputs(outDir string, done map[string]struct{}) error {
	entries, err := os.ReadDir(outDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to scan output directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".mp4") {
			continue
		}
		if m := codePattern.FindString(entry.Name()); m != "" {
			done[strings.ToUpper(m)] = struct{}{}
		}
	}
	return nil
}

// Done reports whether code already completed, in this run or a prior one.
func (l *Ledger) Done(code string) bool {
	_, ok := l.done[strings.ToUpper(code)]
	return ok
}

// Count returns the number of tracked completed episodes.
func (l *Ledger) Count() int {
	return len(l.done)
}

// Record appends a success row and flushes it to disk immediately, then
// marks the code done in memory. A crash after Record must never cause a
// re-download, so the flush is not deferred.
func (l *Ledger) Record(code, title, filename string) error {
	if err := l.writer.Write([]string{code, title, filename}); err != nil {
		return fmt.Errorf("failed to append success row: %w", err)
	}
	l.writer.Flush()
	if err := l.writer.Error(); err != nil {
		return fmt.Errorf("failed to flush success row: %w", err)
	}
	l.done[strings.ToUpper(code)] = struct{}{}
	return nil
}

// Close flushes and closes the success log.
func (l *Ledger) Close() error {
	l.writer.Flush()
	return l.file.Close()
}
