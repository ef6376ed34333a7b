package chimelib

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/chimebell/chime/pkg/logger"
)

// ManagerOpts configures the clip cache. Zero values pick sane
// defaults.
type ManagerOpts struct {
	// MediaDir is where cache files live. Default: DefaultMediaDir().
	MediaDir string
	// ClipSeconds trims normalized clips to this length. 0 keeps the
	// full media. Default 60.
	ClipSeconds int
	// SkipTranscode caches raw media even when ffmpeg is available.
	SkipTranscode bool
	// UserAgent for http fetches.
	UserAgent string
	// ProxyURL routes http fetches through a proxy (http, https or
	// socks5 URL). Empty uses the environment.
	ProxyURL string
	// FetchTimeout bounds a single Ensure when the caller's context
	// has no deadline. Default 2 minutes.
	FetchTimeout time.Duration
	// MaxConcurrent bounds PrefetchAll parallelism. Default 3.
	MaxConcurrent int
	// Resolver turns page links into media URLs. May be nil.
	Resolver Resolver
	// Creds resolves stored host credentials. May be nil.
	Creds CredentialSource
	// Logger receives cache diagnostics. Default: NopLogger.
	Logger logger.Logger
}

// Manager owns the clip cache: the media files under MediaDir and the
// gob manifest that indexes them. All methods are safe for concurrent
// use.
type Manager struct {
	mu    sync.RWMutex
	clips ClipsMap

	pmu sync.Mutex // serializes manifest writes
	f   *os.File

	imu      sync.Mutex // guards inflight
	inflight map[string]chan struct{}

	router *SchemeRouter
	opts   ManagerOpts
	l      logger.Logger
}

// InitManager opens (or creates) the manifest and prunes entries whose
// media files disappeared. A corrupt manifest is not fatal: the cache
// restarts empty and refetches on demand.
func InitManager(opts *ManagerOpts) (*Manager, error) {
	if opts == nil {
		opts = &ManagerOpts{}
	}
	if opts.MediaDir == "" {
		opts.MediaDir = DefaultMediaDir()
	}
	if opts.ClipSeconds == 0 {
		opts.ClipSeconds = 60
	}
	if opts.FetchTimeout == 0 {
		opts.FetchTimeout = 2 * time.Minute
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 3
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNopLogger()
	}
	if err := os.MkdirAll(opts.MediaDir, 0755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}

	client, err := NewHTTPClient(opts.ProxyURL)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		clips:    make(ClipsMap),
		inflight: make(map[string]chan struct{}),
		router:   NewSchemeRouter(client),
		opts:     *opts,
		l:        opts.Logger,
	}
	if err := m.loadManifest(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) loadManifest() error {
	f, err := os.OpenFile(manifestPath, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("open clip manifest: %w", err)
	}
	m.f = f

	fi, err := f.Stat()
	if err != nil {
		return err
	}
	if fi.Size() > 0 {
		if err := gob.NewDecoder(f).Decode(&m.clips); err != nil {
			m.l.Warning("clip manifest corrupt, starting fresh: %s", err.Error())
			m.clips = make(ClipsMap)
		}
	}

	pruned := 0
	for hash, c := range m.clips {
		if !c.Exists() {
			delete(m.clips, hash)
			pruned++
		}
	}
	if pruned > 0 {
		m.l.Warning("pruned %d manifest entries with missing media files", pruned)
	}
	return nil
}

// persist writes the manifest, encoding to memory first so a failed
// encode never truncates the file on disk.
func (m *Manager) persist() error {
	m.mu.RLock()
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(m.clips)
	m.mu.RUnlock()
	if err != nil {
		return err
	}

	m.pmu.Lock()
	defer m.pmu.Unlock()
	if err := m.f.Truncate(0); err != nil {
		return err
	}
	if _, err := m.f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	_, err = m.f.Write(buf.Bytes())
	return err
}

// Router exposes the scheme router so callers can register extra
// protocols before the first fetch.
func (m *Manager) Router() *SchemeRouter {
	return m.router
}

// Lookup returns the cached clip for a link, or nil.
func (m *Manager) Lookup(rawURL string) *Clip {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clips[ClipHash(rawURL)]
}

// Get returns the clip with the given hash.
func (m *Manager) Get(hash string) (*Clip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clips[hash]
	if !ok {
		return nil, ErrClipNotFound
	}
	return c, nil
}

// Clips returns all cached clips, oldest first.
func (m *Manager) Clips() []*Clip {
	m.mu.RLock()
	out := make([]*Clip, 0, len(m.clips))
	for _, c := range m.clips {
		out = append(out, c)
	}
	m.mu.RUnlock()
	sort.Sort(ClipSlice(out))
	return out
}

// LastPlayed returns the most recently played clip, or nil if nothing
// has played yet. Used as the fallback bell when a fetch fails.
func (m *Manager) LastPlayed() *Clip {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *Clip
	for _, c := range m.clips {
		if c.PlayCount == 0 {
			continue
		}
		if best == nil || c.LastPlayedAt.After(best.LastPlayedAt) {
			best = c
		}
	}
	return best
}

// MarkPlayed bumps play stats for a clip and persists the manifest.
func (m *Manager) MarkPlayed(hash string) {
	m.mu.Lock()
	c, ok := m.clips[hash]
	if ok {
		c.PlayCount++
		c.LastPlayedAt = time.Now()
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	if err := m.persist(); err != nil {
		m.l.Warning("persist manifest: %s", err.Error())
	}
}

// Ensure returns the cached clip for a link, fetching and normalizing
// it first when missing. Concurrent calls for the same link share one
// fetch.
func (m *Manager) Ensure(ctx context.Context, rawURL string, h *Handlers) (*Clip, error) {
	h = h.withDefaults(m.l)

	if c := m.Lookup(rawURL); c != nil && c.Exists() {
		return c, nil
	}

	// Per-link flight gate: first caller fetches, the rest wait.
	var flight chan struct{}
	for {
		m.imu.Lock()
		ch, busy := m.inflight[rawURL]
		if !busy {
			flight = make(chan struct{})
			m.inflight[rawURL] = flight
			m.imu.Unlock()
			break
		}
		m.imu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if c := m.Lookup(rawURL); c != nil && c.Exists() {
			return c, nil
		}
	}
	defer func() {
		m.imu.Lock()
		close(flight)
		delete(m.inflight, rawURL)
		m.imu.Unlock()
	}()

	return m.fetchClip(ctx, rawURL, h)
}

func (m *Manager) fetchClip(ctx context.Context, rawURL string, h *Handlers) (*Clip, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.opts.FetchTimeout)
		defer cancel()
	}

	target := rawURL
	if m.opts.Resolver != nil {
		resolved, err := m.opts.Resolver.Resolve(ctx, rawURL)
		if err != nil {
			h.ErrorHandler(rawURL, err)
			return nil, fmt.Errorf("resolve %s: %w", rawURL, err)
		}
		target = resolved
	}

	ftr, err := m.router.NewFetcher(target, &FetchOpts{
		UserAgent: m.opts.UserAgent,
		Creds:     m.opts.Creds,
	})
	if err != nil {
		h.ErrorHandler(rawURL, err)
		return nil, err
	}
	defer ftr.Close()

	probe, err := ftr.Probe(ctx)
	if err != nil {
		h.ErrorHandler(rawURL, err)
		return nil, err
	}
	if probe.Size > 0 {
		// Peak usage is roughly raw plus normalized until the raw
		// temp file is removed.
		if err := checkDiskSpace(m.opts.MediaDir, probe.Size*2); err != nil {
			h.ErrorHandler(rawURL, err)
			return nil, err
		}
	}

	hash := ClipHash(rawURL)
	tmp := filepath.Join(m.opts.MediaDir, ".fetch-"+hash+".part")
	dst, err := os.Create(tmp)
	if err != nil {
		return nil, err
	}
	err = ftr.Fetch(ctx, dst, h)
	dst.Close()
	if err != nil {
		os.Remove(tmp)
		h.ErrorHandler(rawURL, err)
		return nil, err
	}
	if fi, err := os.Stat(tmp); err != nil || fi.Size() == 0 {
		os.Remove(tmp)
		h.ErrorHandler(rawURL, ErrEmptyFetch)
		return nil, ErrEmptyFetch
	}

	name, final, transcoded := m.finalizeMedia(ctx, hash, tmp, probe, target, h)

	fi, err := os.Stat(final)
	if err != nil {
		return nil, fmt.Errorf("finalize clip: %w", err)
	}

	clip := &Clip{
		Hash:       hash,
		URL:        rawURL,
		Name:       name,
		Path:       final,
		Size:       ContentLength(fi.Size()),
		MediaType:  probe.MediaType,
		SourceName: probe.Name,
		Transcoded: transcoded,
		AddedAt:    time.Now(),
	}
	m.mu.Lock()
	m.clips[hash] = clip
	m.mu.Unlock()
	if err := m.persist(); err != nil {
		m.l.Warning("persist manifest: %s", err.Error())
	}
	return clip, nil
}

// finalizeMedia normalizes the fetched media into its cache file, or
// keeps the raw bytes when ffmpeg is unavailable or fails.
func (m *Manager) finalizeMedia(ctx context.Context, hash, tmp string, probe ProbeResult, target string, h *Handlers) (name, final string, transcoded bool) {
	if !m.opts.SkipTranscode && FFmpegAvailable() {
		h.TranscodeStartHandler(hash)
		name = "bell_" + hash + ".mp3"
		final = filepath.Join(m.opts.MediaDir, name)
		if err := normalizeClip(ctx, tmp, final, m.opts.ClipSeconds); err != nil {
			m.l.Warning("normalize %s: %s (keeping raw media)", target, err.Error())
			os.Remove(final)
		} else {
			os.Remove(tmp)
			h.TranscodeCompleteHandler(hash)
			return name, final, true
		}
	}

	name = "bell_" + hash + mediaExt(probe, target)
	final = filepath.Join(m.opts.MediaDir, name)
	if err := os.Rename(tmp, final); err != nil {
		// Same-dir rename failing is unusual; keep the temp file as
		// the cache file rather than lose the fetch.
		final = tmp
		name = filepath.Base(tmp)
	}
	return name, final, false
}

// mediaExt picks a cache file extension from the probed name, the
// media type or the URL, in that order.
func mediaExt(probe ProbeResult, target string) string {
	if ext := filepath.Ext(probe.Name); ext != "" {
		return ext
	}
	if probe.MediaType != "" {
		if exts, err := mime.ExtensionsByType(probe.MediaType); err == nil && len(exts) > 0 {
			return exts[0]
		}
	}
	if ext := filepath.Ext(target); ext != "" && len(ext) <= 5 {
		return ext
	}
	return ".media"
}

// PrefetchAll caches every link, at most MaxConcurrent in flight.
// Returns the number fetched or already cached, plus per-link errors.
func (m *Manager) PrefetchAll(ctx context.Context, urls []string, h *Handlers) (int, []error) {
	sem := make(chan struct{}, m.opts.MaxConcurrent)
	var (
		wg   sync.WaitGroup
		rmu  sync.Mutex
		ok   int
		errs []error
	)
	for _, u := range urls {
		wg.Add(1)
		sem <- struct{}{}
		go func(u string) {
			defer wg.Done()
			defer func() { <-sem }()
			if _, err := m.Ensure(ctx, u, h); err != nil {
				rmu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", u, err))
				rmu.Unlock()
				return
			}
			rmu.Lock()
			ok++
			rmu.Unlock()
		}(u)
	}
	wg.Wait()
	return ok, errs
}

// Flush removes one clip (by hash) or, with an empty hash, the whole
// cache. Returns how many clips were dropped.
func (m *Manager) Flush(hash string) (int, error) {
	m.mu.Lock()
	victims := make([]*Clip, 0, 1)
	if hash == "" {
		for _, c := range m.clips {
			victims = append(victims, c)
		}
		m.clips = make(ClipsMap)
	} else {
		c, ok := m.clips[hash]
		if !ok {
			m.mu.Unlock()
			return 0, ErrClipNotFound
		}
		victims = append(victims, c)
		delete(m.clips, hash)
	}
	m.mu.Unlock()

	for _, c := range victims {
		if err := os.Remove(c.Path); err != nil && !os.IsNotExist(err) {
			m.l.Warning("remove %s: %s", c.Path, err.Error())
		}
	}
	if err := m.persist(); err != nil {
		return len(victims), err
	}
	return len(victims), nil
}

// Close persists the manifest and releases the file handle.
func (m *Manager) Close() error {
	if err := m.persist(); err != nil {
		m.f.Close()
		return err
	}
	return m.f.Close()
}
