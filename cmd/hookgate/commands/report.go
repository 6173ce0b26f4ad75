package commands

import (
	"fmt"

	"github.com/hookgate/hookgate/internal/audit"
	"github.com/spf13/cobra"
)

func NewReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Summarize handler behavior from the audit log",
		RunE:  runReport,
	}
}

func runReport(cmd *cobra.Command, args []string) error {
	_, workspace, err := loadRuntime()
	if err != nil {
		return err
	}

	records, err := audit.ReadAll(workspace)
	if err != nil {
		return err
	}

	reports := audit.Summarize(records)
	if len(reports) == 0 {
		fmt.Println("No audit records.")
		return nil
	}

	fmt.Printf("%-20s %8s %8s %8s %8s %10s %8s\n",
		"HANDLER", "TOTAL", "DENIES", "ERRORS", "TIMEOUTS", "AVG MS", "MAX MS")
	for _, report := range reports {
		fmt.Printf("%-20s %8d %8d %8d %8d %10.1f %8d\n",
			report.Handler,
			report.Total,
			report.Denies,
			report.Errors,
			report.Timeouts,
			report.AvgElapsedMs(),
			report.MaxElapsedMs,
		)
	}
	return nil
}
