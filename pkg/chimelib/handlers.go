package chimelib

import "github.com/chimebell/chime/pkg/logger"

type (
	// FetchStartedHandlerFunc runs when a fetch begins transferring.
	// size is -1 when the source did not report a length.
	FetchStartedHandlerFunc func(url string, size int64)
	// FetchProgressHandlerFunc runs for every chunk transferred.
	FetchProgressHandlerFunc func(url string, nread int)
	// FetchCompleteHandlerFunc runs once the raw media is on disk.
	FetchCompleteHandlerFunc func(url string, tread int64)
	// TranscodeStartHandlerFunc runs when ffmpeg normalization begins.
	TranscodeStartHandlerFunc func(hash string)
	// TranscodeCompleteHandlerFunc runs when normalization succeeds.
	TranscodeCompleteHandlerFunc func(hash string)
	// ErrorHandlerFunc runs when a fetch or normalization fails.
	ErrorHandlerFunc func(url string, err error)
)

// Handlers carries the optional callbacks a caller can attach to cache
// operations. Unset fields are filled with no-ops, so callers only wire
// what they care about (progress bars, notifications).
type Handlers struct {
	FetchStartedHandler      FetchStartedHandlerFunc
	FetchProgressHandler     FetchProgressHandlerFunc
	FetchCompleteHandler     FetchCompleteHandlerFunc
	TranscodeStartHandler    TranscodeStartHandlerFunc
	TranscodeCompleteHandler TranscodeCompleteHandlerFunc
	ErrorHandler             ErrorHandlerFunc
}

// withDefaults returns a copy with every nil callback replaced by a
// no-op. The copy keeps a shared Handlers value safe across concurrent
// prefetch goroutines.
func (h *Handlers) withDefaults(l logger.Logger) *Handlers {
	if l == nil {
		l = logger.NewNopLogger()
	}
	out := &Handlers{}
	if h != nil {
		*out = *h
	}
	if out.FetchStartedHandler == nil {
		out.FetchStartedHandler = func(url string, size int64) {}
	}
	if out.FetchProgressHandler == nil {
		out.FetchProgressHandler = func(url string, nread int) {}
	}
	if out.FetchCompleteHandler == nil {
		out.FetchCompleteHandler = func(url string, tread int64) {}
	}
	if out.TranscodeStartHandler == nil {
		out.TranscodeStartHandler = func(hash string) {}
	}
	if out.TranscodeCompleteHandler == nil {
		out.TranscodeCompleteHandler = func(hash string) {}
	}
	if out.ErrorHandler == nil {
		out.ErrorHandler = func(url string, err error) {
			l.Error("fetch %s: %s", url, err.Error())
		}
	}
	return out
}
