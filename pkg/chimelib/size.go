package chimelib

import "fmt"

// Size unit constants for byte conversions.
const (
	B  int64 = 1
	KB       = 1024 * B
	MB       = 1024 * KB
	GB       = 1024 * MB
)

// ContentLength is a byte count with human-friendly formatting. A value
// of -1 means the size is unknown (streaming source without a length).
type ContentLength int64

func (c ContentLength) v() int64 {
	return int64(c)
}

// IsUnknown reports whether the size is the unknown marker.
func (c ContentLength) IsUnknown() bool {
	return c.v() == -1
}

// String renders the size in its largest fitting unit with one decimal,
// e.g. "2.3MB". Unknown sizes render as "unknown".
func (c ContentLength) String() string {
	if c.IsUnknown() {
		return "unknown"
	}
	v := c.v()
	switch {
	case v >= GB:
		return fmt.Sprintf("%.1fGB", float64(v)/float64(GB))
	case v >= MB:
		return fmt.Sprintf("%.1fMB", float64(v)/float64(MB))
	case v >= KB:
		return fmt.Sprintf("%.1fKB", float64(v)/float64(KB))
	default:
		return fmt.Sprintf("%dB", v)
	}
}
