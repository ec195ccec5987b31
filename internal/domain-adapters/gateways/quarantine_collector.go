package gateways

import (
	"context"
	"strings"

	"github.com/ochairo/trustscan/internal/domain/entities"
)

const (
	xattrPath           = "/usr/bin/xattr"
	quarantineAttribute = "com.apple.quarantine"
)

// quarantineCollector reads the com.apple.quarantine extended attribute
type quarantineCollector struct {
	runner CommandRunner
}

// NewQuarantineCollector creates a quarantine collector
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewQuarantineCollector(runner CommandRunner) *quarantineCollector {
	return &quarantineCollector{runner: runner}
}

// ReadQuarantine prints the attribute value. A missing attribute is a definite "false".
func (c *quarantineCollector) ReadQuarantine(ctx context.Context, path string) *entities.QuarantineResult {
	res := c.runner.Run(ctx, xattrTimeout, xattrPath, "-p", quarantineAttribute, path)
	if res.Error != nil {
		return &entities.QuarantineResult{State: entities.QuarantineUnknown, Value: "error: " + headOf(res.Error.Error(), 80)}
	}
	return ParseQuarantineOutput(res.ExitCode, res.Stdout, res.Stderr)
}

// ParseQuarantineOutput interprets xattr -p results
func ParseQuarantineOutput(exitCode int, stdout, stderr string) *entities.QuarantineResult {
	if exitCode == 0 {
		return &entities.QuarantineResult{State: entities.QuarantinePresent, Value: stdout}
	}
	if exitCode == 1 && isMissingAttribute(stderr) {
		return &entities.QuarantineResult{State: entities.QuarantineAbsent}
	}

	lower := strings.ToLower(stderr)
	if containsAny(lower, "permission denied", "operation not permitted", "access denied") {
		return &entities.QuarantineResult{State: entities.QuarantineUnknown, Value: "access error: " + headOf(stderr, 80)}
	}
	if containsAny(lower, "no such file", "not found", "does not exist") {
		return &entities.QuarantineResult{State: entities.QuarantineUnknown, Value: "file not found: " + headOf(stderr, 80)}
	}
	return &entities.QuarantineResult{State: entities.QuarantineAbsent}
}

func isMissingAttribute(stderr string) bool {
	if stderr == "" {
		return true
	}
	return containsAny(strings.ToLower(stderr), "no such xattr", "no such attribute", "attribute not found")
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
