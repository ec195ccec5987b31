package test_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"howett.net/plist"

	adapters "github.com/ochairo/trustscan/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/trustscan/internal/domain-orchestrators"
	"github.com/ochairo/trustscan/internal/domain/entities"
	"github.com/ochairo/trustscan/internal/domain/services"
	"github.com/ochairo/trustscan/internal/external-adapters/jsonfile"
	"github.com/ochairo/trustscan/internal/external-adapters/macos"
	"github.com/ochairo/trustscan/internal/external-adapters/render"
)

// fakeCollectors answers by executable base name, so fixture paths stay portable
type fakeCollectors struct {
	mu          sync.Mutex
	unsigned    map[string]bool
	quarantined map[string]bool
	calls       int
}

func (c *fakeCollectors) count() {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
}

func (c *fakeCollectors) VerifySignature(_ context.Context, path string) *entities.SignatureResult {
	c.count()
	if c.unsigned[filepath.Base(path)] {
		return &entities.SignatureResult{Status: entities.SignatureFail, Raw: "code object is not signed at all"}
	}
	return &entities.SignatureResult{Status: entities.SignatureOK, TeamID: "EQHXZ8M8AV"}
}

func (c *fakeCollectors) AssessGatekeeper(_ context.Context, path string) *entities.GatekeeperResult {
	c.count()
	if c.unsigned[filepath.Base(path)] {
		return &entities.GatekeeperResult{Status: entities.GatekeeperRejected, Source: "no usable signature"}
	}
	return &entities.GatekeeperResult{Status: entities.GatekeeperAccepted, Source: "Notarized Developer ID"}
}

func (c *fakeCollectors) ReadQuarantine(_ context.Context, path string) *entities.QuarantineResult {
	c.count()
	if c.quarantined[filepath.Base(path)] {
		return &entities.QuarantineResult{State: entities.QuarantinePresent, Value: "0083;65a1b2c3;Safari;"}
	}
	return &entities.QuarantineResult{State: entities.QuarantineAbsent}
}

func (c *fakeCollectors) ReadEntitlements(_ context.Context, _ string) *entities.EntitlementsResult {
	c.count()
	return &entities.EntitlementsResult{Status: entities.EntitlementsNone}
}

type fixedHost struct{}

func (fixedHost) HostInfo(_ context.Context) (entities.HostInfo, error) {
	return entities.HostInfo{OSVersion: "15.2", Build: "24C101", Arch: "arm64", Hostname: "ci-mac"}, nil
}

type machine struct {
	t    *testing.T
	root string
	home string
}

func newMachine(t *testing.T) *machine {
	t.Helper()
	base := t.TempDir()
	return &machine{t: t, root: filepath.Join(base, "root"), home: filepath.Join(base, "home")}
}

func (m *machine) write(path string, data []byte) {
	m.t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		m.t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		m.t.Fatal(err)
	}
}

func (m *machine) writePlist(path string, value interface{}) {
	m.t.Helper()
	data, err := plist.Marshal(value, plist.XMLFormat)
	if err != nil {
		m.t.Fatal(err)
	}
	m.write(path, data)
}

func (m *machine) installApp(name, bundleID string) {
	m.t.Helper()
	app := filepath.Join(m.root, "Applications", name+".app")
	m.writePlist(filepath.Join(app, "Contents", "Info.plist"), map[string]interface{}{
		"CFBundleIdentifier": bundleID,
		"CFBundleExecutable": name,
		"CFBundleName":       name,
	})
	m.write(filepath.Join(app, "Contents", "MacOS", name), []byte("binary"))
}

func (m *machine) installDaemon(label, program string) {
	m.t.Helper()
	m.writePlist(filepath.Join(m.root, "Library", "LaunchDaemons", label+".plist"), map[string]interface{}{
		"Label":     label,
		"Program":   program,
		"RunAtLoad": true,
	})
}

func (m *machine) scanner(collectors *fakeCollectors) *orchestrators.ScanOrchestrator {
	files := adapters.NewFileInfoGateway()
	inventory := macos.NewInventory(macos.Config{
		Root:     m.root,
		Home:     m.home,
		Kextstat: func(context.Context) (string, error) { return "", nil },
	})
	return orchestrators.NewScanOrchestrator(
		inventory,
		collectors,
		files,
		fixedHost{},
		services.NewTrustContextFactory(files, nil, nil),
		services.NewRuleEngine(),
		nil,
		orchestrators.ScanOrchestratorConfig{
			Workers: 4,
			Now:     func() time.Time { return time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC) },
		},
	)
}

func ids(findings []entities.Finding) []string {
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.ID)
	}
	return out
}

// TestEndToEnd_ScanBaselineDiff drives a filesystem fixture through inventory,
// rules, baseline persistence and the JSON report
func TestEndToEnd_ScanBaselineDiff(t *testing.T) {
	ctx := context.Background()
	m := newMachine(t)
	m.installApp("Chrome", "com.google.Chrome")
	m.installApp("Dodgy", "com.example.dodgy")
	m.installDaemon("com.example.updater", "/tmp/updater")

	collectors := &fakeCollectors{unsigned: map[string]bool{"Dodgy": true}}
	scanner := m.scanner(collectors)

	result, err := scanner.Scan(ctx, entities.DefaultConfig(), orchestrators.ModeSequential)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	got := ids(result.Report.Findings)
	want := []string{
		"app:com.example.dodgy:spctl_rejected",
		"app:com.example.dodgy:codesign_fail",
		"persistence:daemon:com.example.updater:user_writable",
		"app:com.google.Chrome:verified",
	}
	if !sameSet(got, want) {
		t.Fatalf("findings = %v, want %v", got, want)
	}
	for i := 1; i < len(result.Report.Findings); i++ {
		prev, cur := result.Report.Findings[i-1], result.Report.Findings[i]
		if cur.Severity.MoreSevereThan(prev.Severity) {
			t.Errorf("report not sorted by severity at %d: %v", i, got)
		}
	}

	// Save, then install one more unsigned app and diff
	store := jsonfile.NewBaselineStore(filepath.Join(m.home, ".trustscan", "baseline.json"))
	baselines := orchestrators.NewBaselineOrchestrator(store, services.NewBaselineDiffer(), nil, orchestrators.BaselineOrchestratorConfig{})
	if _, err := baselines.Save(ctx, result.Report); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	m.installApp("Sneaky", "com.example.sneaky")
	collectors.unsigned["Sneaky"] = true

	second, err := scanner.Scan(ctx, entities.DefaultConfig(), orchestrators.ModeParallel)
	if err != nil {
		t.Fatalf("second Scan failed: %v", err)
	}
	diffed, snapshot := baselines.DiffReport(ctx, second.Report)
	if snapshot == nil || snapshot.Count() != 4 {
		t.Fatalf("snapshot = %+v", snapshot)
	}
	if got := ids(diffed.Findings); !sameSet(got, []string{
		"app:com.example.sneaky:codesign_fail",
		"app:com.example.sneaky:spctl_rejected",
	}) {
		t.Errorf("diff = %v", got)
	}

	var buf bytes.Buffer
	if err := render.WriteJSON(&buf, diffed); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}
	var doc struct {
		Host struct {
			Hostname string `json:"hostname"`
		} `json:"host"`
		Findings []struct {
			ID   string  `json:"id"`
			Path *string `json:"path"`
		} `json:"findings"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Host.Hostname != "ci-mac" || len(doc.Findings) != 2 {
		t.Errorf("report = %+v", doc)
	}
	for _, f := range doc.Findings {
		if f.Path == nil || !strings.Contains(*f.Path, "Sneaky.app") {
			t.Errorf("finding %s path = %v", f.ID, f.Path)
		}
	}
}

// TestEndToEnd_ModeInvariance checks sequential and parallel scans agree exactly
func TestEndToEnd_ModeInvariance(t *testing.T) {
	m := newMachine(t)
	unsigned := map[string]bool{}
	for _, name := range []string{"Alpha", "Bravo", "Charlie", "Delta", "Echo", "Foxtrot", "Golf", "Hotel", "India", "Juliet"} {
		m.installApp(name, "com.example."+strings.ToLower(name))
		unsigned[name] = len(name)%2 == 0
	}
	m.installDaemon("com.example.a", "/Users/shared/a")
	m.installDaemon("com.example.b", "/usr/libexec/b")

	collectors := &fakeCollectors{unsigned: unsigned, quarantined: map[string]bool{"Echo": true}}
	scanner := m.scanner(collectors)
	ctx := context.Background()

	seq, err := scanner.Scan(ctx, entities.DefaultConfig(), orchestrators.ModeSequential)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		par, err := scanner.Scan(ctx, entities.DefaultConfig(), orchestrators.ModeParallel)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(seq.Report.Findings, par.Report.Findings) {
			t.Fatalf("parallel run %d differs:\nseq=%v\npar=%v", i, ids(seq.Report.Findings), ids(par.Report.Findings))
		}
	}
}

// TestEndToEnd_Suppression checks ignore ids and patterns remove findings before the report
func TestEndToEnd_Suppression(t *testing.T) {
	m := newMachine(t)
	m.installApp("Dodgy", "com.example.dodgy")
	m.installDaemon("com.example.updater", "/tmp/updater")

	cfg := entities.DefaultConfig()
	cfg.IgnoreFindings = []string{"persistence:daemon:com.example.updater:user_writable"}
	cfg.IgnorePatterns = []string{`^app:com\.example\.dodgy:spctl_`}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}

	result, err := m.scanner(&fakeCollectors{unsigned: map[string]bool{"Dodgy": true}}).
		Scan(context.Background(), cfg, orchestrators.ModeSequential)
	if err != nil {
		t.Fatal(err)
	}
	if got := ids(result.Report.Findings); !reflect.DeepEqual(got, []string{"app:com.example.dodgy:codesign_fail"}) {
		t.Errorf("findings = %v", got)
	}
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, s := range a {
		seen[s]++
	}
	for _, s := range b {
		seen[s]--
	}
	for _, n := range seen {
		if n != 0 {
			return false
		}
	}
	return true
}
