package gateways

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ochairo/trustscan/internal/domain/interfaces/gateways"
)

// brewCandidates are checked in order; Apple Silicon installs come last
var brewCandidates = []string{
	"/usr/local/bin/brew",
	"/opt/homebrew/bin/brew",
}

// homebrewSource lists casks installed through Homebrew
type homebrewSource struct {
	runner     CommandRunner
	candidates []string
	exists     func(string) bool
}

// NewHomebrewSource creates a package source backed by "brew list --cask"
func NewHomebrewSource(runner CommandRunner) gateways.PackageSourceGateway {
	return &homebrewSource{
		runner:     runner,
		candidates: brewCandidates,
		exists:     fileExists,
	}
}

// ManagedApps returns lowercased cask names. No brew binary means no managed apps.
func (h *homebrewSource) ManagedApps(ctx context.Context) ([]string, error) {
	brew := h.locate()
	if brew == "" {
		return nil, nil
	}

	res := h.runner.Run(ctx, brewTimeout, brew, "list", "--cask")
	if res.Error != nil {
		return nil, fmt.Errorf("failed to list casks: %w", res.Error)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("brew list --cask exited with code %d: %s", res.ExitCode, headOf(res.Stderr, 120))
	}
	return ParseCaskList(res.Stdout), nil
}

func (h *homebrewSource) locate() string {
	for _, candidate := range h.candidates {
		if h.exists(candidate) {
			return candidate
		}
	}
	return ""
}

// ParseCaskList splits "brew list --cask" output into lowercased names
func ParseCaskList(output string) []string {
	var names []string
	for _, field := range strings.Fields(output) {
		names = append(names, strings.ToLower(field))
	}
	return names
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
