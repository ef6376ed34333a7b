//go:build !windows

package chimelib

import (
	"fmt"
	"syscall"
)

// checkDiskSpace verifies the media dir can hold requiredBytes more.
// A failed statfs is ignored rather than fatal; it is better to attempt
// the fetch than to refuse on a probe error.
func checkDiskSpace(path string, requiredBytes int64) error {
	if requiredBytes <= 0 {
		return nil
	}

	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return nil
	}

	availableBytes := int64(stat.Bavail) * int64(stat.Bsize)
	if availableBytes < requiredBytes {
		return fmt.Errorf("%w: need %s, have %s",
			ErrInsufficientDiskSpace,
			ContentLength(requiredBytes),
			ContentLength(availableBytes))
	}
	return nil
}
