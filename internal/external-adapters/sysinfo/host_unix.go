//go:build !darwin && !windows

package sysinfo

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// osRelease reports the kernel release and version from uname
func osRelease() (string, string, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "", "", fmt.Errorf("uname: %w", err)
	}
	return unix.ByteSliceToString(uts.Release[:]), unix.ByteSliceToString(uts.Version[:]), nil
}
