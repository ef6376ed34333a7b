//go:build darwin

package player

func playerCandidates() []execCandidate {
	return []execCandidate{
		{"afplay", nil},
		{"ffplay", []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}},
		{"mpv", []string{"--no-video", "--really-quiet"}},
	}
}
