package config

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

const (
	maxLogSize  = 10 * 1024 * 1024 // 10MB
	maxLogFiles = 3
	// RunLogName is the run log file created in the output directory.
	RunLogName = "vix-ripper.log"
)

// InitLogging routes the standard logger to stderr plus a run log file in
// the output directory, rotating the file when it outgrows maxLogSize. The
// returned closer must run on every exit path.
func InitLogging(outDir string, debug bool) (func(), error) {
	SetDebug(debug)

	logPath := filepath.Join(outDir, RunLogName)

	if info, err := os.Stat(logPath); err == nil && info.Size() >= maxLogSize {
		if err := rotateRunLogs(logPath); err != nil {
			return nil, fmt.Errorf("failed to rotate run logs: %w", err)
		}
	}

	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open run log: %w", err)
	}

	log.SetFlags(log.LstdFlags)
	log.SetOutput(io.MultiWriter(os.Stderr, file))

	closer := func() {
		log.SetOutput(os.Stderr)
		file.Close()
	}
	return closer, nil
}

// rotateRunLogs shifts vix-ripper.log → .1 → .2 → .3, dropping the oldest.
func rotateRunLogs(basePath string) error {
	os.Remove(fmt.Sprintf("%s.%d", basePath, maxLogFiles))

	for i := maxLogFiles - 1; i >= 1; i-- {
		os.Rename(fmt.Sprintf("%s.%d", basePath, i), fmt.Sprintf("%s.%d", basePath, i+1))
	}

	if err := os.Rename(basePath, basePath+".1"); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
