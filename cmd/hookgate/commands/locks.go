package commands

import (
	"fmt"

	"github.com/hookgate/hookgate/internal/lockfile"
	"github.com/spf13/cobra"
)

func NewLocksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "locks",
		Short: "Inspect held workspace locks",
	}

	cmd.AddCommand(
		newLocksListCmd(),
		newLocksInfoCmd(),
	)

	return cmd
}

func newLocksListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List lock markers in the workspace",
		RunE:  runLocksList,
	}
}

func newLocksInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <name>",
		Short: "Show the holder of a named lock",
		Args:  cobra.ExactArgs(1),
		RunE:  runLocksInfo,
	}
}

func runLocksList(cmd *cobra.Command, args []string) error {
	_, workspace, err := loadRuntime()
	if err != nil {
		return err
	}

	records, err := lockfile.NewManager(workspace).List()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No locks held.")
		return nil
	}

	for _, record := range records {
		fmt.Printf("%-24s pid=%-8d host=%s since=%s\n",
			record.Name, record.PID, record.Host, record.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runLocksInfo(cmd *cobra.Command, args []string) error {
	_, workspace, err := loadRuntime()
	if err != nil {
		return err
	}

	record, err := lockfile.NewManager(workspace).Info(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Name:    %s\n", record.Name)
	fmt.Printf("PID:     %d\n", record.PID)
	fmt.Printf("Host:    %s\n", record.Host)
	fmt.Printf("User:    %s\n", record.User)
	fmt.Printf("Command: %s\n", record.Command)
	fmt.Printf("Since:   %s\n", record.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	return nil
}
