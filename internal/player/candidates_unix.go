//go:build !windows && !darwin

package player

// playerCandidates lists external players in preference order; the
// first one present in PATH wins.
func playerCandidates() []execCandidate {
	return []execCandidate{
		{"ffplay", []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}},
		{"mpv", []string{"--no-video", "--really-quiet"}},
		{"paplay", nil},
		{"aplay", nil},
	}
}
