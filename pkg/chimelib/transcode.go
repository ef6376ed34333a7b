package chimelib

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// lookFfmpeg is a seam for tests; production always uses exec.LookPath.
var lookFfmpeg = func() (string, error) {
	return exec.LookPath("ffmpeg")
}

// FFmpegAvailable reports whether ffmpeg is on PATH. Without it clips
// are cached raw and playback length is capped by the player instead.
func FFmpegAvailable() bool {
	_, err := lookFfmpeg()
	return err == nil
}

// normalizeArgs builds the ffmpeg argument list that turns arbitrary
// fetched media into a bell clip: audio only, first seconds, 44.1kHz
// stereo 192k mp3.
func normalizeArgs(src, dst string, seconds int) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-i", src}
	if seconds > 0 {
		args = append(args, "-t", strconv.Itoa(seconds))
	}
	args = append(args,
		"-vn",
		"-ar", "44100",
		"-ac", "2",
		"-b:a", "192k",
		"-f", "mp3",
		dst,
	)
	return args
}

// normalizeClip runs ffmpeg over the fetched media. The ffmpeg stderr
// tail is folded into the error so fetch failures in the journal say
// what actually went wrong.
func normalizeClip(ctx context.Context, src, dst string, seconds int) error {
	ffmpeg, err := lookFfmpeg()
	if err != nil {
		return fmt.Errorf("ffmpeg not available: %w", err)
	}
	cmd := exec.CommandContext(ctx, ffmpeg, normalizeArgs(src, dst, seconds)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, lastLine(out))
	}
	return nil
}

func lastLine(out []byte) string {
	s := strings.TrimSpace(string(out))
	if s == "" {
		return "no output"
	}
	lines := strings.Split(s, "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
