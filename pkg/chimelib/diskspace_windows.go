//go:build windows

package chimelib

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// checkDiskSpace verifies the media dir can hold requiredBytes more.
// Probe failures are ignored, matching the unix behavior.
func checkDiskSpace(path string, requiredBytes int64) error {
	if requiredBytes <= 0 {
		return nil
	}

	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil
	}
	var freeBytesAvailable, totalBytes, totalFreeBytes uint64
	if err := windows.GetDiskFreeSpaceEx(p, &freeBytesAvailable, &totalBytes, &totalFreeBytes); err != nil {
		return nil
	}

	if int64(freeBytesAvailable) < requiredBytes {
		return fmt.Errorf("%w: need %s, have %s",
			ErrInsufficientDiskSpace,
			ContentLength(requiredBytes),
			ContentLength(int64(freeBytesAvailable)))
	}
	return nil
}
