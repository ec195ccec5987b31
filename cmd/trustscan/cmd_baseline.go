package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ochairo/trustscan/internal/domain/entities"
)

func (a *app) newBaselineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Save, compare and inspect the baseline snapshot",
	}

	var baselineFile string
	cmd.PersistentFlags().StringVar(&baselineFile, "baseline-file", "", "baseline location (overrides baseline_file)")

	var fast bool
	save := &cobra.Command{
		Use:   "save",
		Short: "Scan and record every finding as the new baseline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.executeScan(cmd.Context(), &scanOptions{
				saveBaseline: true,
				baselineFile: baselineFile,
				fast:         fast,
			})
		},
	}
	save.Flags().BoolVar(&fast, "fast", false, "audit artifacts in parallel")

	diffOpts := &scanOptions{requireBaseline: true}
	diff := &cobra.Command{
		Use:   "diff",
		Short: "Scan and show only findings that are new or changed since the baseline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			diffOpts.baselineFile = baselineFile
			return a.executeScan(cmd.Context(), diffOpts)
		},
	}
	diff.Flags().BoolVar(&diffOpts.json, "json", false, "write the report as JSON")
	diff.Flags().BoolVar(&diffOpts.fast, "fast", false, "audit artifacts in parallel")
	diff.Flags().BoolVarP(&diffOpts.verbose, "verbose", "v", false, "show all severities unless --min-risk is given")
	diff.Flags().StringVar(&diffOpts.minRisk, "min-risk", "", "minimum severity to show: HIGH, MED, LOW or INFO")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the stored baseline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			applyScanOverrides(cfg, &scanOptions{baselineFile: baselineFile}, a.homeDir)

			baselines, cleanup, err := a.newBaselineOrchestrator(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			snapshot := baselines.Load(cmd.Context())
			if snapshot == nil {
				return usageError(fmt.Errorf("no usable baseline at %s", baselines.Location()))
			}
			return a.printBaseline(baselines.Location(), snapshot)
		},
	}

	cmd.AddCommand(save, diff, show)
	return cmd
}

func (a *app) printBaseline(location string, snapshot *entities.BaselineSnapshot) error {
	w := a.stdout
	if _, err := fmt.Fprintf(w, "Baseline:  %s\nCreated:   %s\nHost:      %s (macOS %s, %s)\nFindings:  %d\n\n",
		location,
		entities.FormatTimestamp(snapshot.CreatedAt),
		snapshot.Host.Hostname, snapshot.Host.OSVersion, snapshot.Host.Arch,
		snapshot.Count()); err != nil {
		return failure(err)
	}

	ids := make([]string, 0, len(snapshot.Findings))
	for id := range snapshot.Findings {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		x, y := snapshot.Findings[ids[i]], snapshot.Findings[ids[j]]
		if x.Severity != y.Severity {
			return x.Severity.MoreSevereThan(y.Severity)
		}
		return ids[i] < ids[j]
	})
	for _, id := range ids {
		e := snapshot.Findings[id]
		if _, err := fmt.Fprintf(w, "  %-4s  %s\n        %s\n", e.Severity, id, e.Title); err != nil {
			return failure(err)
		}
	}
	return nil
}
