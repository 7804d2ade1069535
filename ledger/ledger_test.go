package ledger_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FlashZ/vix-season-ripper/ledger"
)

func TestOpenReadsExistingSuccessLog(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, ledger.SuccessLogName)
	if err := os.WriteFile(csvPath, []byte("S01E001,El comienzo,Serie.S01E001.mp4\nS01E002,La fuga,Serie.S01E002.mp4\n"), 0644); err != nil {
		t.Fatal(err)
	}

	led, err := ledger.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer led.Close()

	if led.Count() != 2 {
		t.Fatalf("Count = %d, want 2", led.Count())
	}
	if !led.Done("S01E001") || !led.Done("s01e002") {
		t.Fatal("codes from the success log not recognized (case-insensitively)")
	}
	if led.Done("S01E003") {
		t.Fatal("unseen code reported done")
	}
}

func TestOpenRecognizesExistingOutputFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"La_Rosa.S01E005.mp4",
		"La_Rosa.S01E006.es.srt", // only media files count
		"notes.txt",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	led, err := ledger.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer led.Close()

	if !led.Done("S01E005") {
		t.Fatal("S01E005 not recognized from existing media file")
	}
	if led.Done("S01E006") {
		t.Fatal("subtitle file must not mark an episode done")
	}
}

func TestRecordPersistsImmediately(t *testing.T) {
	dir := t.TempDir()

	led, err := ledger.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := led.Record("S01E001", "El comienzo", "Serie.S01E001.mp4"); err != nil {
		t.Fatal(err)
	}
	if !led.Done("S01E001") {
		t.Fatal("recorded code not marked done in memory")
	}

	// The row must be on disk before Close: a crash mid-run cannot lose it.
	data, err := os.ReadFile(filepath.Join(dir, ledger.SuccessLogName))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "S01E001,El comienzo,Serie.S01E001.mp4") {
		t.Fatalf("success log missing row, got %q", string(data))
	}
	led.Close()

	// Re-opening appends, never truncates.
	led2, err := ledger.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer led2.Close()
	if err := led2.Record("S01E002", "La fuga", "Serie.S01E002.mp4"); err != nil {
		t.Fatal(err)
	}

	data, err = os.ReadFile(filepath.Join(dir, ledger.SuccessLogName))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("success log has %d rows, want 2: %q", len(lines), string(data))
	}
}

func TestOpenSurvivesTornRow(t *testing.T) {
	dir := t.TempDir()
	// A crashed run can leave a torn trailing row behind.
	content := "S01E001,El comienzo,Serie.S01E001.mp4\nS01E0"
	if err := os.WriteFile(filepath.Join(dir, ledger.SuccessLogName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	led, err := ledger.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer led.Close()

	if !led.Done("S01E001") {
		t.Fatal("intact row not loaded")
	}
}

func TestFailureLogAppendsAcrossOpens(t *testing.T) {
	dir := t.TempDir()

	f, err := ledger.OpenFailureLog(dir)
	if err != nil {
		t.Fatal(err)
	}
	f.Append("S01E003", "https://vix.example/video/ep-3", "NO_MPD")
	f.Close()

	f, err = ledger.OpenFailureLog(dir)
	if err != nil {
		t.Fatal(err)
	}
	f.Append("S01E004", "https://vix.example/video/ep-4", "DL_FAIL_CODE_2")
	f.Close()

	data, err := os.ReadFile(filepath.Join(dir, ledger.FailureLogName))
	if err != nil {
		t.Fatal(err)
	}
	want := "S01E003,https://vix.example/video/ep-3,NO_MPD\nS01E004,https://vix.example/video/ep-4,DL_FAIL_CODE_2\n"
	if string(data) != want {
		t.Fatalf("failure log = %q, want %q", string(data), want)
	}
}

func TestAcquireLockIsExclusive(t *testing.T) {
	dir := t.TempDir()

	lock, err := ledger.AcquireLock(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer lock.Unlock()

	if _, err := ledger.AcquireLock(dir); err == nil {
		t.Fatal("second lock acquired, want failure")
	}
}
