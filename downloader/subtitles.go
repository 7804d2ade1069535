package downloader

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// SubtitleConverter converts a caption file from one format to another at
// the given paths. Failures are logged by the caller, never fatal.
type SubtitleConverter interface {
	Convert(ctx context.Context, src, dst string) error
}

// FFmpegConverter shells out to ffmpeg for the vtt→srt conversion.
type FFmpegConverter struct {
	Binary string // defaults to "ffmpeg"
}

func (c *FFmpegConverter) Convert(ctx context.Context, src, dst string) error {
	binary := c.Binary
	if binary == "" {
		binary = "ffmpeg"
	}

	cmd := exec.CommandContext(ctx, binary, "-y", "-i", src, dst)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("subtitle conversion failed: %w (%s)", err, bytes.TrimSpace(out))
	}
	return nil
}
