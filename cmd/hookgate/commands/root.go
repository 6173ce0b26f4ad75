package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/hookgate/hookgate/internal/config"
	"github.com/hookgate/hookgate/internal/dispatch"
	"github.com/hookgate/hookgate/internal/handler"
	"github.com/hookgate/hookgate/internal/lockfile"
	"github.com/spf13/cobra"
)

var (
	logLevelOverride  string
	workspaceOverride string
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hookgate",
		Short: "Hookgate - tool-call interception and policy dispatch",
		Long:  `Hookgate intercepts agent lifecycle events, runs them through policy handlers, and aggregates their verdicts into allow/deny decisions.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			// The dispatch command owns stdout for its decision JSON;
			// its logs go to the configured file or nowhere.
			return configureLogger(cfg, logLevelOverride, cmd.Name() == "dispatch")
		},
	}

	cmd.PersistentFlags().StringVar(&logLevelOverride, "log-level", "", "Override log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&workspaceOverride, "workspace", "", "Override the shared-state workspace directory")

	cmd.AddCommand(
		NewDispatchCmd(),
		NewHandlersCmd(),
		NewLocksCmd(),
		NewCacheCmd(),
		NewReportCmd(),
		NewStatusCmd(),
		NewVersionCmd(),
	)

	return cmd
}

// loadRuntime resolves config and the effective workspace directory.
func loadRuntime() (*config.Config, string, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config: %w", err)
	}
	if override := strings.TrimSpace(workspaceOverride); override != "" {
		return cfg, override, nil
	}
	workspace, err := cfg.WorkspacePathChecked()
	if err != nil {
		return nil, "", fmt.Errorf("invalid workspace: %w", err)
	}
	return cfg, workspace, nil
}

func newDispatcher(cfg *config.Config, workspace string) *dispatch.Dispatcher {
	return dispatch.New(workspace, handler.DefaultRegistry(), dispatch.Options{
		DefaultTimeout:  cfg.DefaultTimeout(),
		HandlerTimeouts: cfg.HandlerTimeouts(),
		LockOptions: []lockfile.Option{
			lockfile.WithStaleAfter(time.Duration(cfg.Lock.StaleAfterMinutes) * time.Minute),
			lockfile.WithPollInterval(time.Duration(cfg.Lock.PollIntervalMs) * time.Millisecond),
		},
	})
}
