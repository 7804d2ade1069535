package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nxadm/tail"
	"github.com/spf13/cobra"

	"github.com/FlashZ/vix-season-ripper/config"
)

func newLogsCommand() *cobra.Command {
	var outDir string
	var follow bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the run log, optionally following new lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outDir == "" {
				wd, err := os.Getwd()
				if err != nil {
					return err
				}
				outDir = wd
			}
			return tailRunLog(filepath.Join(outDir, config.RunLogName), follow)
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "", "Output directory of the run (default: working directory)")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep following the log for new lines")
	return cmd
}

func tailRunLog(path string, follow bool) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("no run log at %s", path)
	}

	t, err := tail.TailFile(path, tail.Config{
		Follow:    follow,
		ReOpen:    follow,
		MustExist: true,
	})
	if err != nil {
		return fmt.Errorf("failed to tail run log: %w", err)
	}
	defer t.Cleanup()

	for line := range t.Lines {
		if line.Err != nil {
			return line.Err
		}
		fmt.Println(line.Text)
	}
	return nil
}
