package commands

import (
	"fmt"
	"strings"

	"github.com/hookgate/hookgate/internal/handler"
	"github.com/hookgate/hookgate/internal/hook"
	"github.com/hookgate/hookgate/internal/lockfile"
	"github.com/hookgate/hookgate/internal/state"
	"github.com/spf13/cobra"
)

func NewHandlersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "handlers",
		Short: "Manage policy handlers",
	}

	cmd.AddCommand(
		newHandlersListCmd(),
		newHandlersEnableCmd(),
		newHandlersDisableCmd(),
	)

	return cmd
}

func newHandlersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered handlers and their state",
		RunE:  runHandlersList,
	}
}

func newHandlersEnableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enable <name>",
		Short: "Re-enable a disabled handler",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHandlersToggle(args[0], true)
		},
	}
}

func newHandlersDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable <name>",
		Short: "Disable a handler without unregistering it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHandlersToggle(args[0], false)
		},
	}
}

func runHandlersList(cmd *cobra.Command, args []string) error {
	_, workspace, err := loadRuntime()
	if err != nil {
		return err
	}

	disabled := loadDisabledStore(workspace).Load()
	for _, h := range handler.DefaultRegistry().List() {
		status := "enabled"
		if disabled.Contains(h.Name()) {
			status = "disabled"
		}
		fmt.Printf("%-20s %-8s %s\n", h.Name(), status, joinPoints(h.Points()))
	}
	return nil
}

func runHandlersToggle(name string, enable bool) error {
	_, workspace, err := loadRuntime()
	if err != nil {
		return err
	}

	name = strings.TrimSpace(name)
	if _, ok := handler.DefaultRegistry().Get(name); !ok {
		return fmt.Errorf("unknown handler: %s", name)
	}

	store := loadDisabledStore(workspace)
	if enable {
		if err := store.Enable(name); err != nil {
			return err
		}
		fmt.Printf("Handler %s enabled.\n", name)
		return nil
	}
	if err := store.Disable(name); err != nil {
		return err
	}
	fmt.Printf("Handler %s disabled.\n", name)
	return nil
}

func loadDisabledStore(workspace string) *state.DisabledStore {
	return state.NewDisabledStore(workspace, lockfile.NewManager(workspace))
}

func joinPoints(points []hook.Point) string {
	names := make([]string, len(points))
	for i, p := range points {
		names[i] = string(p)
	}
	return strings.Join(names, ",")
}
