//go:build windows

package sysinfo

import "errors"

func osRelease() (string, string, error) {
	return "", "", errors.New("OS release is not available on windows")
}
