package commands

import (
	"fmt"
	"os"

	"github.com/hookgate/hookgate/internal/config"
	"github.com/hookgate/hookgate/internal/handler"
	"github.com/hookgate/hookgate/internal/lockfile"
	"github.com/hookgate/hookgate/internal/metrics"
	"github.com/hookgate/hookgate/internal/state"
	"github.com/spf13/cobra"
)

func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show hookgate configuration status",
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, workspace, err := loadRuntime()
	if err != nil {
		return err
	}

	fmt.Println("=== Hookgate Status ===")
	fmt.Println()

	fmt.Printf("Config: %s\n", config.ConfigPath())
	if _, err := os.Stat(config.ConfigPath()); err == nil {
		fmt.Println("  Status: OK")
	} else {
		fmt.Println("  Status: Not found (using defaults)")
	}

	fmt.Printf("\nWorkspace: %s\n", workspace)
	if _, err := os.Stat(workspace); err == nil {
		fmt.Println("  Status: OK")
	} else {
		fmt.Println("  Status: Not found (created on first dispatch)")
	}

	fmt.Println("\nDispatch:")
	fmt.Printf("  Default handler budget: %s\n", cfg.DefaultTimeout())
	for name, budget := range cfg.HandlerTimeouts() {
		fmt.Printf("  Budget override: %s=%s\n", name, budget)
	}

	locks := lockfile.NewManager(workspace)
	disabled := state.NewDisabledStore(workspace, locks).Load()
	fmt.Println("\nHandlers:")
	for _, h := range handler.DefaultRegistry().List() {
		status := "enabled"
		if disabled.Contains(h.Name()) {
			status = "disabled"
		}
		fmt.Printf("  %s: %s\n", h.Name(), status)
	}

	fmt.Println("\nMetrics:")
	if snap, err := metrics.Read(workspace); err == nil && snap.HasData() {
		fmt.Printf("  Dispatches: %d\n", snap.Dispatches)
		fmt.Printf("  Handlers tracked: %d\n", len(snap.Handlers))
	} else {
		fmt.Println("  No dispatches recorded.")
	}

	counters := state.NewCounterStore(workspace, locks).Load()
	fmt.Println("\nSession activity:")
	fmt.Printf("  Actions observed: %d\n", counters.ActionsObserved)
	fmt.Printf("  Subagents completed: %d\n", counters.SubagentsCompleted)
	fmt.Printf("  Compactions: %d\n", counters.Compactions)
	if counters.LastSessionID != "" {
		fmt.Printf("  Last session: %s\n", counters.LastSessionID)
	}

	return nil
}
