//go:build windows

package player

func playerCandidates() []execCandidate {
	return []execCandidate{
		{"ffplay", []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}},
		{"mpv", []string{"--no-video", "--really-quiet"}},
	}
}
