package gateways

import (
	"fmt"
	"os"
	"time"

	"github.com/ochairo/trustscan/internal/domain/interfaces/gateways"
)

// fileInfoGateway answers existence and age questions from os.Stat
type fileInfoGateway struct {
	now func() time.Time
}

// NewFileInfoGateway creates a file info gateway using the wall clock
func NewFileInfoGateway() gateways.FileInfoGateway {
	return &fileInfoGateway{now: time.Now}
}

// Exists reports whether path can be stat'ed
func (f *fileInfoGateway) Exists(path string) bool {
	return fileExists(path)
}

// AgeDays returns whole days since path was last modified
func (f *fileInfoGateway) AgeDays(path string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	age := f.now().Sub(info.ModTime())
	if age < 0 {
		return 0, nil
	}
	return int(age.Hours() / 24), nil
}
