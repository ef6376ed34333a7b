package resolver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/require"

	"github.com/chimebell/chime/pkg/logger"
)

const resolveCallback = "resolve"

var (
	ErrNoMatches         = errors.New("matches not declared")
	ErrResolveNotDefined = errors.New("resolve function not defined")
	ErrInvalidReturnType = errors.New("invalid return type")
)

// Script is one resolver loaded from the scripts directory. A script
// declares a global `matches` array of regex strings and a
// `resolve(url)` function returning the media url. Returning an empty
// string declines the link and lets the next strategy handle it.
type Script struct {
	// Name is the script file name.
	Name string
	// Path is the absolute script path.
	Path string

	rawMatches []string
	matches    []*regexp.Regexp

	// script exclusive js runtime, not goroutine safe
	vm *goja.Runtime
	mu sync.Mutex
}

// OpenScript compiles the script at path and verifies it declares
// matches and a resolve function.
func OpenScript(path string) (*Script, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	vm := goja.New()
	registry := new(require.Registry)
	registry.Enable(vm)
	console.Enable(vm)

	if _, err := vm.RunString(string(b)); err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	s := &Script{
		Name: filepath.Base(path),
		Path: path,
		vm:   vm,
	}
	mv := vm.Get("matches")
	if mv == nil || goja.IsUndefined(mv) || goja.IsNull(mv) {
		return nil, ErrNoMatches
	}
	if err := vm.ExportTo(mv, &s.rawMatches); err != nil {
		return nil, fmt.Errorf("matches: %w", err)
	}
	if len(s.rawMatches) == 0 {
		return nil, ErrNoMatches
	}
	for _, raw := range s.rawMatches {
		re, err := regexp.Compile(raw)
		if err != nil {
			return nil, fmt.Errorf("matches %q: %w", raw, err)
		}
		s.matches = append(s.matches, re)
	}
	if fv := vm.Get(resolveCallback); fv == nil || goja.IsUndefined(fv) {
		return nil, ErrResolveNotDefined
	}
	return s, nil
}

// Matches reports whether any of the script's patterns match the url.
func (s *Script) Matches(rawURL string) bool {
	for _, re := range s.matches {
		if re.MatchString(rawURL) {
			return true
		}
	}
	return false
}

// Resolve calls the script's resolve function. JS exceptions and
// runtime panics come back as errors so one broken script never takes
// the daemon down.
func (s *Script) Resolve(rawURL string) (out string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("script panic: %v", r)
		}
	}()
	fn, ok := goja.AssertFunction(s.vm.Get(resolveCallback))
	if !ok {
		return "", ErrResolveNotDefined
	}
	v, err := fn(goja.Undefined(), s.vm.ToValue(rawURL))
	if err != nil {
		return "", err
	}
	res, ok := v.Export().(string)
	if !ok {
		return "", ErrInvalidReturnType
	}
	return strings.TrimSpace(res), nil
}

// LoadScripts opens every *.js file under dir. A missing directory
// means no scripts; a script that fails to load is skipped with a
// warning so the rest keep working.
func LoadScripts(dir string, l logger.Logger) []*Script {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			l.Warning("resolver scripts dir %s: %v", dir, err)
		}
		return nil
	}
	var scripts []*Script
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".js") {
			continue
		}
		s, err := OpenScript(filepath.Join(dir, e.Name()))
		if err != nil {
			l.Warning("resolver script %s skipped: %v", e.Name(), err)
			continue
		}
		scripts = append(scripts, s)
	}
	sort.Slice(scripts, func(i, j int) bool {
		return scripts[i].Name < scripts[j].Name
	})
	return scripts
}
