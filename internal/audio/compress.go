package audio

import (
	"context"
	"fmt"
	"os/exec"
)

// Compression output is always mono at this sample rate.
const (
	CompressedChannels   = 1
	CompressedSampleRate = 16000
)

// Compressor turns a raw WAV segment into a small MP3.
type Compressor struct {
	FFmpeg  string
	Bitrate string // e.g. "128k"
}

// Compress is deterministic for a given input and bitrate.
func (c *Compressor) Compress(ctx context.Context, inputPath, outputPath string) error {
	cmd := exec.CommandContext(ctx, c.FFmpeg,
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", inputPath,
		"-ac", fmt.Sprint(CompressedChannels),
		"-ar", fmt.Sprint(CompressedSampleRate),
		"-codec:a", "libmp3lame",
		"-b:a", c.Bitrate,
		"-map_metadata", "-1",
		"-fflags", "+bitexact",
		"-flags:a", "+bitexact",
		outputPath,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("compressing %s: %w\n%s", inputPath, err, string(out))
	}
	return nil
}
