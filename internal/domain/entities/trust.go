package entities

// TrustContext holds derived, per-artifact facts consumed by rules
type TrustContext struct {
	TeamID           string
	VendorName       string // empty when the publisher is not in the vendor table
	KnownPublisher   bool   // vendor table or caller-trusted
	SystemHelperPath bool
	UserWritablePath bool
	AgeDays          int // -1 when unknown
	AppStore         bool
	ManagedPackage   bool // installed through a local package manager (Homebrew cask)
	QuarantineSource string
	HomebrewSource   bool // quarantine source resolves to a local package manager
	BrowserSource    bool
}
