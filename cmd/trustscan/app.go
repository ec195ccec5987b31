package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	adapters "github.com/ochairo/trustscan/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/trustscan/internal/domain-orchestrators"
	"github.com/ochairo/trustscan/internal/domain/entities"
	"github.com/ochairo/trustscan/internal/domain/interfaces"
	"github.com/ochairo/trustscan/internal/domain/interfaces/gateways"
	"github.com/ochairo/trustscan/internal/domain/services"
	"github.com/ochairo/trustscan/internal/external-adapters/jsonfile"
	"github.com/ochairo/trustscan/internal/external-adapters/logging"
	"github.com/ochairo/trustscan/internal/external-adapters/macos"
	"github.com/ochairo/trustscan/internal/external-adapters/sqlite"
	"github.com/ochairo/trustscan/internal/external-adapters/sysinfo"
	"github.com/ochairo/trustscan/internal/external-adapters/yaml"
)

// systemDeps are the host-facing collaborators of a scan
type systemDeps struct {
	inventory  gateways.InventoryGateway
	collectors gateways.CollectorGateway
	files      gateways.FileInfoGateway
	host       gateways.HostInfoProvider
	packages   gateways.PackageSourceGateway
}

func newSystemDeps(homeDir string) systemDeps {
	runner := adapters.NewCommandRunner()
	return systemDeps{
		inventory:  macos.NewInventory(macos.Config{Home: homeDir}),
		collectors: adapters.NewCompositeCollectorGateway(runner),
		files:      adapters.NewFileInfoGateway(),
		host:       sysinfo.NewProvider(),
		packages:   adapters.NewHomebrewSource(runner),
	}
}

type globalOptions struct {
	configPath string
	debug      bool
	force      bool
	noColor    bool
}

// app holds process-wide state shared by every subcommand
type app struct {
	stdout   io.Writer
	stderr   io.Writer
	terminal *os.File // stdout when it is a real file, used for TTY detection
	homeDir  string
	isMacOS  func() bool
	now      func() time.Time
	system   func(homeDir string) systemDeps
	logger   interfaces.Logger
	opts     globalOptions
}

func newApp(stdout, stderr io.Writer) *app {
	home, _ := os.UserHomeDir()
	a := &app{
		stdout:  stdout,
		stderr:  stderr,
		homeDir: home,
		isMacOS: sysinfo.IsMacOS,
		now:     time.Now,
		system:  newSystemDeps,
	}
	if f, ok := stdout.(*os.File); ok {
		a.terminal = f
	}
	return a
}

// run executes the command line and returns the process exit code
func (a *app) run(ctx context.Context, args []string) int {
	root := a.newRootCmd()
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	return exitCode(root.ExecuteContext(ctx), a.stderr)
}

func (a *app) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "trustscan",
		Short: "trustscan - macOS trust and persistence auditor",
		Long: `trustscan enumerates applications, launchd items, kernel/system extensions
and browser extensions, checks their code signatures, Gatekeeper verdicts,
quarantine attributes and entitlements, and reports risky findings.`,
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.setupLogger()
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if z, ok := a.logger.(*logging.ZapLogger); ok {
				z.Sync()
			}
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	flags := root.PersistentFlags()
	flags.StringVar(&a.opts.configPath, "config", "", "config file (default: search ~/.trustscan.yaml, ~/.config/trustscan/config.yaml)")
	flags.BoolVar(&a.opts.debug, "debug", false, "enable debug logging on stderr")
	flags.BoolVar(&a.opts.force, "force", false, "run on hosts other than macOS")
	flags.BoolVar(&a.opts.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		a.newScanCmd(),
		a.newBaselineCmd(),
		a.newHistoryCmd(),
		a.newConfigCmd(),
		a.newVersionCmd(),
	)
	return root
}

func (a *app) setupLogger() error {
	if a.logger != nil {
		return nil
	}
	logger, err := logging.NewZapLogger(a.opts.debug)
	if err != nil {
		return failure(fmt.Errorf("failed to initialize logger: %w", err))
	}
	a.logger = logger
	return nil
}

// requireMacOS refuses to scan other platforms unless --force is set
func (a *app) requireMacOS() error {
	if a.isMacOS() || a.opts.force {
		return nil
	}
	return usageError(errors.New("trustscan only works on macOS (use --force to run anyway)"))
}

// loadConfig reads the configuration. Any load or validation problem is a usage error.
func (a *app) loadConfig() (*entities.Config, error) {
	cfg, err := yaml.NewConfigRepository(a.homeDir).Load(a.opts.configPath)
	if err != nil {
		return nil, usageError(fmt.Errorf("failed to load configuration: %w", err))
	}
	return cfg, nil
}

func (a *app) newScanOrchestrator(sys systemDeps) *orchestrators.ScanOrchestrator {
	return orchestrators.NewScanOrchestrator(
		sys.inventory,
		sys.collectors,
		sys.files,
		sys.host,
		services.NewTrustContextFactory(sys.files, sys.packages, a.logger),
		services.NewRuleEngine(),
		a.logger,
		orchestrators.ScanOrchestratorConfig{Now: a.now},
	)
}

// newBaselineOrchestrator wires the baseline store with the optional signer,
// verifier and history database named by cfg. The returned func releases them.
func (a *app) newBaselineOrchestrator(ctx context.Context, cfg *entities.Config) (*orchestrators.BaselineOrchestrator, func(), error) {
	config := orchestrators.BaselineOrchestratorConfig{Now: a.now}
	cleanup := func() {}

	if cfg.SigningKey != "" {
		signer, err := adapters.NewGPGSnapshotSigner(cfg.SigningKey)
		if err != nil {
			return nil, cleanup, usageError(fmt.Errorf("failed to load signing key: %w", err))
		}
		config.Signer = signer
	}
	if cfg.VerifyKeyring != "" {
		verifier, err := adapters.NewGPGSnapshotSigner(cfg.VerifyKeyring)
		if err != nil {
			return nil, cleanup, usageError(fmt.Errorf("failed to load verification keyring: %w", err))
		}
		config.Verifier = verifier
	}
	if cfg.HistoryDB != "" {
		store, err := sqlite.NewHistoryStore(ctx, cfg.HistoryDB)
		if err != nil {
			return nil, cleanup, failure(fmt.Errorf("failed to open history database: %w", err))
		}
		config.History = store
		cleanup = func() {
			if err := store.Close(); err != nil {
				a.logger.Warn("failed to close history database", interfaces.Err(err))
			}
		}
	}

	orch := orchestrators.NewBaselineOrchestrator(
		jsonfile.NewBaselineStore(cfg.BaselineFile),
		services.NewBaselineDiffer(),
		a.logger,
		config,
	)
	return orch, cleanup, nil
}

// notef writes an informational line to stderr
func (a *app) notef(format string, args ...interface{}) {
	fmt.Fprintf(a.stderr, format+"\n", args...) //nolint:errcheck // Best-effort status output
}
