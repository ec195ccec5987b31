package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ochairo/trustscan/internal/domain/entities"
)

const minSuspiciousPermissions = 3

var highRiskBrowserPermissions = map[string]bool{
	"webRequest":         true,
	"webRequestBlocking": true,
	"debugger":           true,
	"proxy":              true,
	"management":         true,
	"nativeMessaging":    true,
	"privacy":            true,
}

var suspiciousBrowserPermissions = map[string]bool{
	"tabs":            true,
	"cookies":         true,
	"history":         true,
	"downloads":       true,
	"clipboardRead":   true,
	"clipboardWrite":  true,
	"webNavigation":   true,
	"bookmarks":       true,
	"geolocation":     true,
	"topSites":        true,
	"browsingData":    true,
	"contentSettings": true,
}

var allSitesPatterns = map[string]bool{
	"<all_urls>":  true,
	"*://*/*":     true,
	"http://*/*":  true,
	"https://*/*": true,
	"file:///*":   true,
}

func browserRules(ext *entities.BrowserExtension) []rule {
	return []rule{
		{name: "high_risk_permissions", eval: func(_ ruleInput) *entities.Finding { return browserHighRisk(ext) }},
		{name: "broad_host_access", eval: func(_ ruleInput) *entities.Finding { return browserBroadHosts(ext) }},
		{name: "suspicious_permissions", eval: func(_ ruleInput) *entities.Finding { return browserSuspicious(ext) }},
		{name: "inventory", eval: func(_ ruleInput) *entities.Finding { return browserInventory(ext) }},
	}
}

// IsHostPattern reports whether a manifest permission is a URL match pattern rather than an API name
func IsHostPattern(p string) bool {
	return strings.Contains(p, "://") || p == "<all_urls>"
}

// IsBroadHostPattern reports whether a match pattern covers all sites or uses multiple wildcards
func IsBroadHostPattern(p string) bool {
	return allSitesPatterns[p] || strings.Count(p, "*") >= 2
}

// hostPatterns merges declared host permissions with host-like entries in permissions
func hostPatterns(ext *entities.BrowserExtension) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		if p != "" && !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, p := range ext.HostPermissions {
		add(p)
	}
	for _, p := range ext.Permissions {
		if IsHostPattern(p) {
			add(p)
		}
	}
	sort.Strings(out)
	return out
}

func matchingPermissions(ext *entities.BrowserExtension, set map[string]bool) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range ext.Permissions {
		if set[p] && !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

func browserFinding(ext *entities.BrowserExtension, ruleName string, sev entities.Severity, title, details, rec string, ev browserEvidence) *entities.Finding {
	ev.Browser = ext.Browser
	ev.ExtensionID = ext.ExtensionID
	ev.Version = ext.Version
	return &entities.Finding{
		ID:             entities.FindingID(entities.CategoryBrowserExtension, ext.SubjectKey(), ruleName),
		Category:       entities.CategoryBrowserExtension,
		Severity:       sev,
		Title:          title,
		Details:        details,
		Recommendation: rec,
		Path:           ext.ManifestPath,
		Evidence:       mergeEvidence(ev),
	}
}

func browserHighRisk(ext *entities.BrowserExtension) *entities.Finding {
	matched := matchingPermissions(ext, highRiskBrowserPermissions)
	if len(matched) == 0 {
		return nil
	}
	name := ext.DisplayName()
	return browserFinding(ext, "high_risk_permissions", entities.SeverityHigh,
		"Browser extension with high-risk permissions: "+name,
		fmt.Sprintf("%s extension '%s' can %s.", browserLabel(ext.Browser), name, strings.Join(describePermissions(matched), ", ")),
		"Remove this extension unless you installed it deliberately and trust its publisher. "+
			"These permissions allow intercepting traffic or controlling the browser.",
		browserEvidence{Matched: matched},
	)
}

func browserBroadHosts(ext *entities.BrowserExtension) *entities.Finding {
	var broad []string
	for _, p := range hostPatterns(ext) {
		if IsBroadHostPattern(p) {
			broad = append(broad, p)
		}
	}
	if len(broad) == 0 {
		return nil
	}
	name := ext.DisplayName()
	return browserFinding(ext, "broad_host_access", entities.SeverityMed,
		"Browser extension with broad host access: "+name,
		fmt.Sprintf("%s extension '%s' can read and modify data on every site matching %s.",
			browserLabel(ext.Browser), name, strings.Join(broad, ", ")),
		"Restrict the extension's site access in browser settings, or remove it if it doesn't need all sites.",
		browserEvidence{Hosts: broad},
	)
}

func browserSuspicious(ext *entities.BrowserExtension) *entities.Finding {
	matched := matchingPermissions(ext, suspiciousBrowserPermissions)
	if len(matched) < minSuspiciousPermissions {
		return nil
	}
	name := ext.DisplayName()
	return browserFinding(ext, "suspicious_permissions", entities.SeverityMed,
		"Browser extension with suspicious permissions: "+name,
		fmt.Sprintf("%s extension '%s' requests %d privacy-sensitive permissions.",
			browserLabel(ext.Browser), name, len(matched)),
		"Check that the extension's features justify access to browsing history, cookies and tabs.",
		browserEvidence{Matched: matched},
	)
}

func browserInventory(ext *entities.BrowserExtension) *entities.Finding {
	hosts := hostPatterns(ext)
	var apis []string
	for _, p := range ext.Permissions {
		if !IsHostPattern(p) {
			apis = append(apis, p)
		}
	}
	if len(apis) == 0 && len(hosts) == 0 {
		return nil
	}
	sort.Strings(apis)
	name := ext.DisplayName()
	return browserFinding(ext, "inventory", entities.SeverityInfo,
		"Browser extension installed: "+name,
		fmt.Sprintf("%s extension '%s' declares %d permission(s) and %d host pattern(s).",
			browserLabel(ext.Browser), name, len(apis), len(hosts)),
		"No action needed if you recognize this extension.",
		browserEvidence{Matched: apis, Hosts: hosts},
	)
}

func browserLabel(b entities.Browser) string {
	switch b {
	case entities.BrowserChrome:
		return "Chrome"
	case entities.BrowserFirefox:
		return "Firefox"
	case entities.BrowserSafari:
		return "Safari"
	default:
		return string(b)
	}
}

func describePermissions(perms []string) []string {
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		switch p {
		case "webRequest", "webRequestBlocking":
			out = append(out, "intercept network requests ("+p+")")
		case "debugger":
			out = append(out, "attach a debugger to pages")
		case "proxy":
			out = append(out, "control proxy settings")
		case "management":
			out = append(out, "manage other extensions")
		case "nativeMessaging":
			out = append(out, "talk to native programs")
		case "privacy":
			out = append(out, "change privacy settings")
		default:
			out = append(out, p)
		}
	}
	return out
}
