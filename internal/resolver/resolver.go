// Package resolver turns page links into direct media urls before the
// fetch engine sees them. Resolution tries user scripts first, then an
// external extractor tool, and passes direct media links through
// untouched.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"path"
	"strings"
	"time"

	"github.com/chimebell/chime/internal/config"
	"github.com/chimebell/chime/pkg/chimelib"
	"github.com/chimebell/chime/pkg/logger"
)

var ErrBadResolvedURL = errors.New("resolver returned an unusable url")

// lookTool is swappable in tests.
var lookTool = exec.LookPath

var defaultToolArgs = []string{"-g", "-f", "bestaudio/best", "--no-playlist"}

// allowedSchemes is what the fetch engine can actually pull from.
var allowedSchemes = map[string]bool{
	"http":  true,
	"https": true,
	"ftp":   true,
	"ftps":  true,
	"sftp":  true,
	"file":  true,
}

var mediaExts = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".ogg":  true,
	".oga":  true,
	".flac": true,
	".m4a":  true,
	".aac":  true,
	".opus": true,
	".wma":  true,
	".mid":  true,
	".midi": true,
	".mp4":  true,
	".webm": true,
}

// ScriptInfo describes a loaded resolver script.
type ScriptInfo struct {
	Name    string   `json:"name"`
	Path    string   `json:"path"`
	Matches []string `json:"matches"`
}

// Resolver maps page links to media urls.
type Resolver struct {
	tool     string
	toolArgs []string
	timeout  time.Duration
	scripts  []*Script
	l        logger.Logger
}

// New builds a resolver from config. Scripts that fail to load are
// skipped with a warning, never an error.
func New(cfg *config.ResolverConfig, l logger.Logger) *Resolver {
	if cfg == nil {
		cfg = &config.ResolverConfig{}
	}
	if l == nil {
		l = logger.NewNopLogger()
	}
	r := &Resolver{
		tool:     cfg.Tool,
		toolArgs: cfg.ToolArgs,
		timeout:  time.Duration(cfg.TimeoutSeconds) * time.Second,
		l:        l,
	}
	if len(r.toolArgs) == 0 {
		r.toolArgs = defaultToolArgs
	}
	if r.timeout <= 0 {
		r.timeout = 30 * time.Second
	}
	if cfg.ScriptsDir != "" {
		r.scripts = LoadScripts(cfg.ScriptsDir, l)
		if len(r.scripts) > 0 {
			l.Info("loaded %d resolver script(s) from %s", len(r.scripts), cfg.ScriptsDir)
		}
	}
	return r
}

// Resolve returns the direct media url for rawURL. Direct schemes and
// media-looking links pass through unchanged; page links go through
// matching scripts and then the extractor tool.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", rawURL, err)
	}
	switch u.Scheme {
	case "file", "ftp", "ftps", "sftp":
		return rawURL, nil
	}
	for _, s := range r.scripts {
		if !s.Matches(rawURL) {
			continue
		}
		out, err := s.Resolve(rawURL)
		if err != nil {
			r.l.Warning("resolver script %s failed for %s: %v", s.Name, rawURL, err)
			continue
		}
		if out == "" {
			continue
		}
		r.l.Info("script %s resolved %s", s.Name, rawURL)
		return checkResolved(out)
	}
	if looksLikeMedia(u) {
		return rawURL, nil
	}
	if r.tool == "" {
		return rawURL, nil
	}
	if _, err := lookTool(r.tool); err != nil {
		r.l.Warning("resolver tool %s not found, passing link through", r.tool)
		return rawURL, nil
	}
	out, err := r.runTool(ctx, rawURL)
	if err != nil {
		return "", err
	}
	return checkResolved(out)
}

// Scripts lists the loaded resolver scripts.
func (r *Resolver) Scripts() []ScriptInfo {
	infos := make([]ScriptInfo, 0, len(r.scripts))
	for _, s := range r.scripts {
		infos = append(infos, ScriptInfo{
			Name:    s.Name,
			Path:    s.Path,
			Matches: append([]string(nil), s.rawMatches...),
		})
	}
	return infos
}

func looksLikeMedia(u *url.URL) bool {
	return mediaExts[strings.ToLower(path.Ext(u.Path))]
}

func checkResolved(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadResolvedURL, err)
	}
	if !allowedSchemes[u.Scheme] {
		return "", fmt.Errorf("%w: scheme %q", ErrBadResolvedURL, u.Scheme)
	}
	return raw, nil
}

var _ chimelib.Resolver = (*Resolver)(nil)
