//go:build windows

package common

import (
	"os"
	"strings"
)

// DefaultPipeName is the default name of the Windows control pipe.
const DefaultPipeName = "chimed"

// DefaultPipePath returns the full Windows named pipe path.
func DefaultPipePath() string {
	return `\\.\pipe\` + DefaultPipeName
}

// PipePath returns the named pipe path for the daemon. The
// CHIME_PIPE_NAME environment variable overrides the default; a value
// already carrying the \\.\pipe\ prefix is used as-is.
func PipePath() string {
	if name := os.Getenv(PipeNameEnv); name != "" {
		if strings.HasPrefix(name, `\\.\pipe\`) {
			return name
		}
		return `\\.\pipe\` + name
	}
	return DefaultPipePath()
}
