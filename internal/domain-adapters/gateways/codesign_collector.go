package gateways

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/ochairo/trustscan/internal/domain/entities"
)

const (
	codesignPath = "/usr/bin/codesign"
	rawLimit     = 200
)

var (
	teamIDPattern    = regexp.MustCompile(`TeamIdentifier[=:]\s*([A-Z0-9]+)`)
	authorityPattern = regexp.MustCompile(`(?m)^Authority[=:]\s*(.+)$`)
)

// codesignCollector verifies signatures with /usr/bin/codesign
type codesignCollector struct {
	runner CommandRunner
}

// NewCodesignCollector creates a signature collector
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewCodesignCollector(runner CommandRunner) *codesignCollector {
	return &codesignCollector{runner: runner}
}

// VerifySignature runs a strict deep verification, then reads signing details
func (c *codesignCollector) VerifySignature(ctx context.Context, path string) *entities.SignatureResult {
	verify := c.runner.Run(ctx, codesignTimeout, codesignPath, "--verify", "--deep", "--strict", "--verbose=2", path)
	if verify.Error != nil {
		return &entities.SignatureResult{
			Status: entities.SignatureUnknown,
			Raw:    truncateRaw("verify error: " + verify.Error.Error()),
		}
	}

	status := ParseVerifyExitCode(verify.ExitCode)

	detail := c.runner.Run(ctx, codesignTimeout, codesignPath, "-dv", "--verbose=4", path)
	if detail.Error != nil {
		return &entities.SignatureResult{
			Status: status,
			Raw:    truncateRaw("detail error: " + detail.Error.Error()),
		}
	}

	output := detail.Combined()
	return &entities.SignatureResult{
		Status:      status,
		TeamID:      ParseTeamID(output),
		Authorities: ParseAuthorities(output),
		Raw:         codesignSummary(verify, detail),
	}
}

// ParseVerifyExitCode maps codesign --verify exit codes to a status
func ParseVerifyExitCode(code int) entities.SignatureStatus {
	switch code {
	case 0:
		return entities.SignatureOK
	case 1, 2, 3:
		return entities.SignatureFail
	default:
		return entities.SignatureUnknown
	}
}

// ParseTeamID extracts the TeamIdentifier from codesign -dv output
func ParseTeamID(output string) string {
	if m := teamIDPattern.FindStringSubmatch(output); m != nil {
		return m[1]
	}
	return ""
}

// ParseAuthorities extracts the certificate chain, leaf first
func ParseAuthorities(output string) []string {
	matches := authorityPattern.FindAllStringSubmatch(output, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimSpace(m[1]))
	}
	return out
}

func codesignSummary(verify, detail *CommandResult) string {
	var parts []string
	switch {
	case verify.Stderr != "":
		parts = append(parts, "verify: "+headOf(verify.Stderr, 80))
	case verify.Stdout != "":
		parts = append(parts, "verify: "+headOf(verify.Stdout, 80))
	default:
		parts = append(parts, "verify: code "+strconv.Itoa(verify.ExitCode))
	}
	if detail.ExitCode != 0 && detail.Stderr != "" {
		parts = append(parts, "detail: "+headOf(detail.Stderr, 80))
	}
	return truncateRaw(strings.Join(parts, " | "))
}

func truncateRaw(s string) string {
	r := []rune(s)
	if len(r) <= rawLimit {
		return s
	}
	return string(r[:rawLimit-3]) + "..."
}

func headOf(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
