package services

import "testing"

func TestVendorTable(t *testing.T) {
	if !IsKnownVendor("EQHXZ8M8AV") || IsKnownVendor("") || IsKnownVendor("NOPE") {
		t.Error("IsKnownVendor() mismatch")
	}
	if VendorName("6N38VWS5BX") != "Mozilla Corporation" {
		t.Errorf("VendorName() = %q", VendorName("6N38VWS5BX"))
	}
	if VendorName("NOPE") != "NOPE" {
		t.Error("unknown team ids should be returned as-is")
	}

	vendors := KnownVendors()
	vendors["EQHXZ8M8AV"] = "changed"
	if VendorName("EQHXZ8M8AV") != "Google LLC" {
		t.Error("KnownVendors() must return a copy")
	}
}

func TestPathClassification(t *testing.T) {
	tests := []struct {
		path     string
		helper   bool
		writable bool
	}{
		{"/Library/PrivilegedHelperTools/com.docker.vmnetd", true, false},
		{"/Applications/Slack.app/Contents/Frameworks/Slack Helper.app", true, false},
		{"/Users/bob/bin/agent", false, true},
		{"/private/tmp/payload", false, true},
		{"/usr/local/bin/brew", false, false},
		{"", false, false},
	}
	for _, tt := range tests {
		if got := IsSystemHelperPath(tt.path); got != tt.helper {
			t.Errorf("IsSystemHelperPath(%q) = %v", tt.path, got)
		}
		if got := IsUserWritablePath(tt.path); got != tt.writable {
			t.Errorf("IsUserWritablePath(%q) = %v", tt.path, got)
		}
	}
}
