package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/FlashZ/vix-season-ripper/ledger"
)

func newStatusCommand() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show completed and failed episodes from a previous run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outDir == "" {
				wd, err := os.Getwd()
				if err != nil {
					return err
				}
				outDir = wd
			}
			return printStatus(outDir)
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "", "Output directory of the run (default: working directory)")
	return cmd
}

func printStatus(outDir string) error {
	successes, err := readSuccessRows(filepath.Join(outDir, ledger.SuccessLogName))
	if err != nil {
		return err
	}
	failures, err := readFailureRows(filepath.Join(outDir, ledger.FailureLogName))
	if err != nil {
		return err
	}

	if len(successes) == 0 && len(failures) == 0 {
		fmt.Println("No run state found in", outDir)
		return nil
	}

	if len(successes) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleRounded)
		t.SetTitle("Completed (%d)", len(successes))
		t.AppendHeader(table.Row{"Code", "Title", "File"})
		for _, row := range successes {
			t.AppendRow(toRow(row, 3))
		}
		t.Render()
	}

	if len(failures) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleRounded)
		t.SetTitle("Needs follow-up (%d)", len(failures))
		t.AppendHeader(table.Row{"Code", "URL", "Reason"})
		for _, row := range failures {
			t.AppendRow(toRow(row, 3))
		}
		t.Render()
	}

	return nil
}

func readSuccessRows(path string) ([][]string, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// The failure log is plain "code,url,reason" lines; URLs never contain
// commas on this site, so a 3-way split is enough.
func readFailureRows(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rows [][]string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		rows = append(rows, strings.SplitN(line, ",", 3))
	}
	return rows, nil
}

func toRow(fields []string, width int) table.Row {
	row := make(table.Row, width)
	for i := 0; i < width; i++ {
		if i < len(fields) {
			row[i] = fields[i]
		} else {
			row[i] = ""
		}
	}
	return row
}
