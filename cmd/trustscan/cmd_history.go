package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ochairo/trustscan/internal/domain/entities"
	"github.com/ochairo/trustscan/internal/external-adapters/render"
	"github.com/ochairo/trustscan/internal/external-adapters/sqlite"
)

var errNoHistory = errors.New("history_db is not configured")

func (a *app) newHistoryCmd() *cobra.Command {
	var state string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List findings tracked across scans",
		Long: `List every finding recorded in the history database (history_db) with the
time it was first and last seen and, once it disappeared, when it was resolved.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := parseState(state)
			if err != nil {
				return usageError(err)
			}

			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if cfg.HistoryDB == "" {
				return usageError(errNoHistory)
			}

			store, err := sqlite.NewHistoryStore(cmd.Context(), cfg.HistoryDB)
			if err != nil {
				return failure(fmt.Errorf("failed to open history database: %w", err))
			}
			defer store.Close() //nolint:errcheck // Defer close

			records, err := store.List(cmd.Context(), filter)
			if err != nil {
				return failure(err)
			}
			if err := render.WriteHistory(a.stdout, records); err != nil {
				return failure(err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&state, "state", "all", "filter by state: open, resolved or all")
	return cmd
}

func parseState(s string) (entities.FindingState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return "", nil
	case "open":
		return entities.StateOpen, nil
	case "resolved":
		return entities.StateResolved, nil
	default:
		return "", fmt.Errorf("invalid state %q: must be open, resolved or all", s)
	}
}
