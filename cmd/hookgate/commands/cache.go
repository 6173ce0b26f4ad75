package commands

import (
	"fmt"

	"github.com/hookgate/hookgate/internal/cache"
	"github.com/hookgate/hookgate/internal/lockfile"
	"github.com/spf13/cobra"
)

func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and reset the handler result cache",
	}

	cmd.AddCommand(
		newCacheStatsCmd(),
		newCacheClearCmd(),
	)

	return cmd
}

func newCacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache entry counts",
		RunE:  runCacheStats,
	}
}

func newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cache entry",
		RunE:  runCacheClear,
	}
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	_, workspace, err := loadRuntime()
	if err != nil {
		return err
	}

	stats := workspaceCache(workspace).Stats()
	fmt.Printf("Store:   %s\n", stats.Path)
	fmt.Printf("Entries: %d\n", stats.Entries)
	fmt.Printf("Expired: %d\n", stats.Expired)
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	_, workspace, err := loadRuntime()
	if err != nil {
		return err
	}

	if err := workspaceCache(workspace).Clear(); err != nil {
		return err
	}
	fmt.Println("Cache cleared.")
	return nil
}

func workspaceCache(workspace string) *cache.Store {
	return cache.NewStore(workspace, lockfile.NewManager(workspace))
}
