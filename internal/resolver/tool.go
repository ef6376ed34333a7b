package resolver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// runTool shells out to the extractor and reads the media url off its
// first stdout line.
func (r *Resolver) runTool(ctx context.Context, rawURL string) (string, error) {
	tctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	args := append(append([]string{}, r.toolArgs...), rawURL)
	cmd := exec.CommandContext(tctx, r.tool, args...)
	out, err := cmd.Output()
	if err != nil {
		if errors.Is(tctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%s timed out after %s", r.tool, r.timeout)
		}
		var ee *exec.ExitError
		if errors.As(err, &ee) && len(ee.Stderr) > 0 {
			return "", fmt.Errorf("%s: %s", r.tool, lastLine(ee.Stderr))
		}
		return "", fmt.Errorf("%s: %w", r.tool, err)
	}
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line, nil
		}
	}
	return "", fmt.Errorf("%s produced no url for %s", r.tool, rawURL)
}

func lastLine(out []byte) string {
	out = bytes.TrimSpace(out)
	if i := bytes.LastIndexByte(out, '\n'); i >= 0 {
		out = out[i+1:]
	}
	return string(out)
}
