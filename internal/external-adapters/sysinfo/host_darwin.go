//go:build darwin

package sysinfo

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// osRelease reads the product version (e.g. 14.4.1) and build (e.g. 23E224) via sysctl
func osRelease() (string, string, error) {
	version, err := unix.Sysctl("kern.osproductversion")
	if err != nil {
		return "", "", fmt.Errorf("sysctl kern.osproductversion: %w", err)
	}
	build, err := unix.Sysctl("kern.osversion")
	if err != nil {
		return version, "", fmt.Errorf("sysctl kern.osversion: %w", err)
	}
	return version, build, nil
}
