package chimelib

import "errors"

var (
	ErrClipNotFound          = errors.New("clip not found in cache")
	ErrEmptyFetch            = errors.New("fetched zero bytes")
	ErrUnsupportedScheme     = errors.New("unsupported link scheme")
	ErrProbeRequired         = errors.New("probe must be called before fetch")
	ErrInsufficientDiskSpace = errors.New("insufficient disk space")
	ErrFetchStopped          = errors.New("fetch stopped")
)
