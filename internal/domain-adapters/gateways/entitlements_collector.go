package gateways

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"howett.net/plist"

	"github.com/ochairo/trustscan/internal/domain/entities"
)

// sensitiveEntitlements maps entitlement keys worth reviewing to display labels
var sensitiveEntitlements = map[string]string{
	"com.apple.security.device.camera":                                     "Camera Access",
	"com.apple.security.device.microphone":                                 "Microphone Access",
	"com.apple.security.device.usb":                                        "USB Device Access",
	"com.apple.security.device.bluetooth":                                  "Bluetooth Access",
	"com.apple.security.device.audio-input":                                "Audio Input Access",
	"com.apple.security.personal-information.addressbook":                  "Contacts Access",
	"com.apple.security.personal-information.calendars":                    "Calendar Access",
	"com.apple.security.personal-information.location":                     "Location Access",
	"com.apple.security.personal-information.photos-library":               "Photos Library Access",
	"com.apple.security.automation.apple-events":                           "Apple Events Automation",
	"com.apple.security.full-disk-access":                                  "Full Disk Access",
	"com.apple.security.network.client":                                    "Network Client",
	"com.apple.security.network.server":                                    "Network Server",
	"com.apple.security.files.user-selected.read-write":                    "User-Selected Files Access",
	"com.apple.security.files.downloads.read-write":                        "Downloads Folder Access",
	"com.apple.security.temporary-exception.files.absolute-path.read-write": "Absolute Path File Access",
	"com.apple.security.cs.allow-jit":                                      "JIT Code Execution",
	"com.apple.security.cs.allow-unsigned-executable-memory":               "Unsigned Executable Memory",
	"com.apple.security.cs.allow-dyld-environment-variables":               "DYLD Environment Variables",
	"com.apple.security.cs.disable-library-validation":                     "Disabled Library Validation",
	"com.apple.security.get-task-allow":                                    "Task Inspection (Debug)",
	"com.apple.private.security.no-sandbox":                                "No Sandbox",
	"com.apple.rootless.install":                                           "System Integrity Protection Bypass",
	"com.apple.private.tcc.allow":                                          "TCC Bypass",
}

// highRiskEntitlements weaken code-injection, sandbox or SIP protections
var highRiskEntitlements = map[string]bool{
	"com.apple.security.get-task-allow":                      true,
	"com.apple.security.cs.allow-unsigned-executable-memory": true,
	"com.apple.security.cs.allow-dyld-environment-variables": true,
	"com.apple.security.cs.disable-library-validation":       true,
	"com.apple.private.security.no-sandbox":                  true,
	"com.apple.rootless.install":                             true,
	"com.apple.private.tcc.allow":                            true,
}

// entitlementsCollector extracts entitlements with codesign and decodes the plist
type entitlementsCollector struct {
	runner CommandRunner
}

// NewEntitlementsCollector creates an entitlements collector
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewEntitlementsCollector(runner CommandRunner) *entitlementsCollector {
	return &entitlementsCollector{runner: runner}
}

// ReadEntitlements dumps the entitlements plist to stdout and classifies its keys
func (c *entitlementsCollector) ReadEntitlements(ctx context.Context, path string) *entities.EntitlementsResult {
	res := c.runner.Run(ctx, codesignTimeout, codesignPath, "-d", "--entitlements", ":-", path)
	if res.Error != nil {
		return &entities.EntitlementsResult{Status: entities.EntitlementsError}
	}
	if res.ExitCode != 0 {
		lower := strings.ToLower(res.Stderr)
		if strings.Contains(lower, "no such file") || strings.Contains(lower, "not found") {
			return &entities.EntitlementsResult{Status: entities.EntitlementsError}
		}
		return &entities.EntitlementsResult{Status: entities.EntitlementsNone}
	}

	result, err := ParseEntitlements([]byte(res.Stdout))
	if err != nil {
		return &entities.EntitlementsResult{Status: entities.EntitlementsError}
	}
	return result
}

// ParseEntitlements decodes an entitlements plist. Empty input means no entitlements.
func ParseEntitlements(data []byte) (*entities.EntitlementsResult, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return &entities.EntitlementsResult{Status: entities.EntitlementsNone}, nil
	}

	var dict map[string]interface{}
	if _, err := plist.Unmarshal(data, &dict); err != nil {
		return nil, fmt.Errorf("failed to parse entitlements plist: %w", err)
	}

	result := &entities.EntitlementsResult{Status: entities.EntitlementsOK}
	for key, value := range dict {
		if !enabled(value) {
			continue
		}
		label, sensitive := sensitiveEntitlements[key]
		switch {
		case highRiskEntitlements[key]:
			if !sensitive {
				label = key
			}
			result.HighRisk = append(result.HighRisk, label)
		case sensitive:
			result.Sensitive = append(result.Sensitive, label)
		}
	}
	sort.Strings(result.HighRisk)
	sort.Strings(result.Sensitive)
	return result, nil
}

// enabled treats booleans by value and anything else as enabled when non-empty
func enabled(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	default:
		return !rv.IsZero()
	}
}
