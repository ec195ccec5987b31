package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	orchestrators "github.com/ochairo/trustscan/internal/domain-orchestrators"
	"github.com/ochairo/trustscan/internal/domain/entities"
	"github.com/ochairo/trustscan/internal/domain/interfaces"
	"github.com/ochairo/trustscan/internal/domain/services"
	"github.com/ochairo/trustscan/internal/external-adapters/render"
	"github.com/ochairo/trustscan/internal/external-adapters/yaml"
)

type scanOptions struct {
	json           bool
	sarifPath      string
	outPath        string
	fast           bool
	verbose        bool
	showAll        bool
	saveBaseline   bool
	baselineFile   string
	minRisk        string
	trustVendors   []string
	excludeVendors []string
	groupByVendor  bool

	// requireBaseline turns a missing baseline into an error ("baseline diff")
	requireBaseline bool
}

func (a *app) newScanCmd() *cobra.Command {
	opts := &scanOptions{}
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Audit installed software and print findings",
		Long: `Audit applications, launchd items, kernel/system extensions and browser extensions.

When a baseline exists, only findings that are new or changed since the baseline
are shown. Use --show-all to disable the comparison.`,
		Example: `  trustscan scan
  trustscan scan --verbose --group-by-vendor
  trustscan scan --min-risk HIGH --exclude-vendor UBF8T346G9
  trustscan scan --json --out report.json --sarif findings.sarif
  trustscan scan --save-baseline`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.executeScan(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.json, "json", false, "write the report as JSON")
	f.StringVar(&opts.sarifPath, "sarif", "", "also write a SARIF 2.1.0 report to `path`")
	f.StringVarP(&opts.outPath, "out", "o", "", "write the report to `path` instead of stdout")
	f.BoolVar(&opts.fast, "fast", false, "audit artifacts in parallel")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "show all severities unless --min-risk is given")
	f.BoolVar(&opts.showAll, "show-all", false, "show every finding even when a baseline exists")
	f.BoolVar(&opts.saveBaseline, "save-baseline", false, "save this scan as the baseline")
	f.StringVar(&opts.baselineFile, "baseline-file", "", "baseline location (overrides baseline_file)")
	f.StringVar(&opts.minRisk, "min-risk", "", "minimum severity to show: HIGH, MED, LOW or INFO")
	f.StringSliceVar(&opts.trustVendors, "trust-vendor", nil, "treat this team id as a known vendor (repeatable)")
	f.StringSliceVar(&opts.excludeVendors, "exclude-vendor", nil, "hide findings signed by this team id (repeatable)")
	f.BoolVar(&opts.groupByVendor, "group-by-vendor", false, "group findings by publisher")
	return cmd
}

// executeScan runs the whole pipeline: scan, history, baseline, presentation filters, output
func (a *app) executeScan(ctx context.Context, opts *scanOptions) error {
	if err := a.requireMacOS(); err != nil {
		return err
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	applyScanOverrides(cfg, opts, a.homeDir)
	if err := cfg.Validate(); err != nil {
		return usageError(fmt.Errorf("invalid configuration: %w", err))
	}

	threshold, filterSeverity, err := minSeverity(cfg, opts)
	if err != nil {
		return usageError(err)
	}
	if err := checkOutputDir(opts.sarifPath); err != nil {
		return err
	}
	if err := checkOutputDir(opts.outPath); err != nil {
		return err
	}

	baselines, cleanup, err := a.newBaselineOrchestrator(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	// Read before saving so --save-baseline still compares against the previous run
	snapshot := baselines.Load(ctx)
	if opts.requireBaseline && snapshot == nil {
		return usageError(fmt.Errorf("no usable baseline at %s", baselines.Location()))
	}

	mode := orchestrators.ModeSequential
	if opts.fast {
		mode = orchestrators.ModeParallel
	}
	result, err := a.newScanOrchestrator(a.system(a.homeDir)).Scan(ctx, cfg, mode)
	if err != nil {
		return failure(fmt.Errorf("scan failed: %w", err))
	}
	a.logScanStats(result)
	report := result.Report

	summary, err := baselines.RecordHistory(ctx, report.Findings)
	if err != nil {
		return failure(err)
	}
	if summary != nil && !opts.json {
		a.notef("History: %d new, %d reopened, %d resolved", summary.New, summary.Reopened, summary.Resolved)
	}

	if opts.saveBaseline {
		saved, err := baselines.Save(ctx, report)
		if err != nil {
			return failure(err)
		}
		a.notef("Baseline saved to %s (%d findings)", baselines.Location(), saved.Count())
		if !opts.json && opts.sarifPath == "" {
			return nil
		}
	}

	findings := report.Findings
	if snapshot != nil && !opts.showAll {
		findings = baselines.Diff(findings, snapshot)
		if !opts.json {
			a.notef("Diff mode: showing %d new/changed findings (baseline has %d)", len(findings), snapshot.Count())
		}
	}
	if filterSeverity {
		findings = services.FilterByMinSeverity(findings, threshold)
	}
	findings = services.FilterExcludedVendors(findings, cfg.ExcludeVendors)
	filtered := report.WithFindings(findings)

	return a.writeOutputs(filtered, opts)
}

func applyScanOverrides(cfg *entities.Config, opts *scanOptions, homeDir string) {
	cfg.TrustedVendors = append(cfg.TrustedVendors, opts.trustVendors...)
	cfg.ExcludeVendors = append(cfg.ExcludeVendors, opts.excludeVendors...)
	if opts.baselineFile != "" {
		cfg.BaselineFile = yaml.ExpandHome(opts.baselineFile, homeDir)
	}
}

// minSeverity resolves the display threshold: --min-risk wins, --verbose
// disables the configured default, otherwise min_risk applies.
func minSeverity(cfg *entities.Config, opts *scanOptions) (entities.Severity, bool, error) {
	if opts.minRisk != "" {
		s, err := entities.ParseSeverity(opts.minRisk)
		if err != nil {
			return entities.SeverityInfo, false, err
		}
		return s, true, nil
	}
	if opts.verbose {
		return entities.SeverityInfo, false, nil
	}
	return cfg.MinRisk, true, nil
}

// checkOutputDir rejects output paths whose directory does not exist
func checkOutputDir(path string) error {
	if path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return usageError(fmt.Errorf("directory does not exist: %s", dir))
	}
	return nil
}

func (a *app) writeOutputs(report *entities.ScanReport, opts *scanOptions) error {
	if opts.sarifPath != "" {
		var buf bytes.Buffer
		if err := render.WriteSARIF(&buf, report, version); err != nil {
			return failure(err)
		}
		if err := os.WriteFile(opts.sarifPath, buf.Bytes(), 0o600); err != nil {
			return failure(fmt.Errorf("SARIF output failed: %w", err))
		}
		a.notef("SARIF report written to %s", opts.sarifPath)
	}

	var buf bytes.Buffer
	if err := a.renderReport(&buf, report, opts); err != nil {
		return failure(fmt.Errorf("rendering failed: %w", err))
	}

	if opts.outPath != "" {
		if err := os.WriteFile(opts.outPath, buf.Bytes(), 0o600); err != nil {
			return failure(fmt.Errorf("output failed: %w", err))
		}
		a.notef("Report written to %s", opts.outPath)
		return nil
	}
	if _, err := io.Copy(a.stdout, &buf); err != nil {
		return failure(fmt.Errorf("output failed: %w", err))
	}
	return nil
}

func (a *app) renderReport(w io.Writer, report *entities.ScanReport, opts *scanOptions) error {
	if opts.json {
		return render.WriteJSON(w, report)
	}

	textOpts := render.TextOptions{GroupByVendor: opts.groupByVendor}
	if opts.outPath == "" && a.terminal != nil {
		textOpts.Color = !a.opts.noColor && render.IsTerminal(a.terminal)
		textOpts.Width = render.TerminalWidth(a.terminal)
	}
	return render.NewTextRenderer(w, textOpts).Render(report)
}

func (a *app) logScanStats(result *orchestrators.ScanResult) {
	for _, category := range entities.AllCategories() {
		a.logger.Debug("category audited",
			interfaces.F("category", category),
			interfaces.F("artifacts", result.Stats.Artifacts[category]),
			interfaces.F("degraded", result.Stats.FailedArtifacts[category]))
	}
	if len(result.Stats.FailedInventory) > 0 {
		a.notef("Warning: could not enumerate %v", result.Stats.FailedInventory)
	}
	a.logger.Info("scan complete",
		interfaces.F("findings", len(result.Report.Findings)),
		interfaces.F("duration", result.Stats.Duration))
}
