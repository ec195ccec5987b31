package services

import "strings"

// knownVendors maps Apple developer team ids to publisher names
var knownVendors = map[string]string{
	"9BNSXJN65R": "Docker Inc",
	"UBF8T346G9": "Microsoft Corporation",
	"BJ4HAAB9B3": "Zoom Video Communications",
	"MXGJJ98X76": "Valve Corporation",
	"EQHXZ8M8AV": "Google LLC",
	"6N38VWS5BX": "Mozilla Corporation",
	"43AQ936H96": "JetBrains s.r.o.",
	"4XRHD3P41Q": "Slack Technologies",
	"2E337YPCZY": "Dropbox Inc",
	"5E9KR5BC68": "Discord Inc",
	"MXCNVGBRW2": "Homebrew",
	"Apple":      "Apple Inc",
	"0000000000": "Apple Inc",
	"PKV8ZPD836": "GPGTools GmbH",
	"PXPBC95EF8": "Oracle America Inc",
}

var systemHelperPatterns = []string{
	"PrivilegedHelperTools",
	"XPCServices",
	"Frameworks/",
	".framework/",
	"/Contents/Library/",
}

// compared against the lowercased path
var userWritablePrefixes = []string{
	"/users/",
	"/tmp/",
	"/var/tmp/",
	"/private/tmp/",
	"~/",
}

// IsKnownVendor reports whether a team id is in the static vendor table
func IsKnownVendor(teamID string) bool {
	if teamID == "" {
		return false
	}
	_, ok := knownVendors[teamID]
	return ok
}

// VendorName returns the publisher name for a team id, or the id itself when unknown
func VendorName(teamID string) string {
	if name, ok := knownVendors[teamID]; ok {
		return name
	}
	return teamID
}

// KnownVendors returns a copy of the vendor table
func KnownVendors() map[string]string {
	out := make(map[string]string, len(knownVendors))
	for k, v := range knownVendors {
		out[k] = v
	}
	return out
}

// IsSystemHelperPath reports whether a path looks like a bundled helper or framework
func IsSystemHelperPath(path string) bool {
	if path == "" {
		return false
	}
	for _, pattern := range systemHelperPatterns {
		if strings.Contains(path, pattern) {
			return true
		}
	}
	return false
}

// IsUserWritablePath reports whether a path sits under a location unprivileged users can modify
func IsUserWritablePath(path string) bool {
	if path == "" {
		return false
	}
	lower := strings.ToLower(path)
	for _, prefix := range userWritablePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}
