package gateways

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ochairo/trustscan/internal/domain/entities"
)

const spctlPath = "/usr/sbin/spctl"

var (
	sourcePattern = regexp.MustCompile(`source=([^\n]+)`)
	originPattern = regexp.MustCompile(`origin=([^\n]+)`)
)

// spctlCollector asks Gatekeeper whether a path may execute
type spctlCollector struct {
	runner CommandRunner
}

// NewSpctlCollector creates a Gatekeeper collector
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewSpctlCollector(runner CommandRunner) *spctlCollector {
	return &spctlCollector{runner: runner}
}

// AssessGatekeeper runs an execute-type assessment
func (c *spctlCollector) AssessGatekeeper(ctx context.Context, path string) *entities.GatekeeperResult {
	res := c.runner.Run(ctx, spctlTimeout, spctlPath, "-a", "-vv", "--type", "execute", path)
	if res.Error != nil {
		return &entities.GatekeeperResult{
			Status: entities.GatekeeperUnknown,
			Raw:    truncateRaw("spctl error: " + res.Error.Error()),
		}
	}

	output := res.Stdout + "\n" + res.Stderr
	return &entities.GatekeeperResult{
		Status: ParseGatekeeperStatus(output, res.ExitCode),
		Source: ParseGatekeeperSource(output),
		Raw:    firstLine(output, res.ExitCode),
	}
}

// ParseGatekeeperStatus prefers the verdict text and falls back to the exit code
func ParseGatekeeperStatus(output string, exitCode int) entities.GatekeeperStatus {
	lower := strings.ToLower(output)
	switch {
	case strings.Contains(lower, "accepted"):
		return entities.GatekeeperAccepted
	case strings.Contains(lower, "rejected"):
		return entities.GatekeeperRejected
	}
	switch exitCode {
	case 0:
		return entities.GatekeeperAccepted
	case 3:
		return entities.GatekeeperRejected
	default:
		return entities.GatekeeperUnknown
	}
}

// ParseGatekeeperSource extracts "source=" or, failing that, "origin="
func ParseGatekeeperSource(output string) string {
	if m := sourcePattern.FindStringSubmatch(output); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := originPattern.FindStringSubmatch(output); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func firstLine(output string, exitCode int) string {
	for _, line := range strings.Split(output, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			if len([]rune(line)) > 150 {
				return string([]rune(line)[:147]) + "..."
			}
			return line
		}
	}
	return fmt.Sprintf("exit code: %d", exitCode)
}
