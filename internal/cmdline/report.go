package cmdline

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/castforge/castforge/internal/apperrors"
	"github.com/castforge/castforge/internal/checkpoint"
	"github.com/castforge/castforge/internal/report"
	"github.com/castforge/castforge/internal/workflow"
)

var reportID string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the last checkpointed state of a workflow run",
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportID, "id", "", "workflow ID to report on (required)")
	reportCmd.MarkFlagRequired("id")
	rootCmd.AddCommand(reportCmd)
}

// runReport reconstructs a Report straight from the durable checkpoint
// without re-running the scheduler — a read-only view of wherever the run
// last got to, including if it's still mid-flight.
func runReport(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := checkpoint.NewFileStore(cfg.CheckpointPath)
	if err != nil {
		return exitWith(3, apperrors.FailedTo("open checkpoint store", err))
	}

	cp, found, err := store.Load(cmd.Context(), workflow.ID(reportID))
	if err != nil {
		return exitWith(3, apperrors.CheckpointError("load checkpoint", reportID, err))
	}
	if !found {
		return exitWith(1, fmt.Errorf("no checkpoint found for workflow %s", reportID))
	}

	ctx := cp.Restore()
	rep := report.Build(ctx, time.Now(), !allTerminal(ctx))
	printReport(cmd, rep)
	return nil
}

func allTerminal(ctx *workflow.Context) bool {
	for _, status := range ctx.PhaseStatus {
		if !status.Terminal() {
			return false
		}
	}
	return true
}
