package cmdline

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/castforge/castforge/internal/apperrors"
	"github.com/castforge/castforge/internal/phase"
	"github.com/castforge/castforge/internal/registry"
	"github.com/castforge/castforge/internal/report"
	"github.com/castforge/castforge/internal/workflow"
)

var runType string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a new workflow run",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&runType, "type", "standard", "workflow type: standard|enhanced")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	wfType, err := parseWorkflowType(runType)
	if err != nil {
		return exitWith(3, err)
	}

	ctx, cancel := withSignalCancel(cmd.Context())
	defer cancel()

	facade, cleanup, err := buildFacade(ctx, cfg, logger)
	defer cleanup()
	if err != nil {
		return err
	}

	rep, err := facade.Run(ctx, wfType)
	if err != nil {
		return exitWith(3, apperrors.FailedTo("run workflow", err))
	}
	return reportOutcome(cmd, rep)
}

func withSignalCancel(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\nshutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

func parseWorkflowType(s string) (workflow.Type, error) {
	switch s {
	case "standard", "Standard":
		return workflow.Standard, nil
	case "enhanced", "Enhanced":
		return workflow.Enhanced, nil
	default:
		return "", fmt.Errorf("unknown workflow type %q (want standard|enhanced)", s)
	}
}

// reportOutcome prints rep and returns an exitError classifying the
// failure: a Critical phase ending Failed is exit code 2, any other
// failure is exit code 1.
func reportOutcome(cmd *cobra.Command, rep report.Report) error {
	printReport(cmd, rep)
	if rep.Outcome == report.Success {
		return nil
	}
	if criticalPhaseFailed(rep) {
		return exitWith(2, fmt.Errorf("workflow %s failed: a Critical phase did not succeed", rep.WorkflowID))
	}
	return exitWith(1, fmt.Errorf("workflow %s failed", rep.WorkflowID))
}

func criticalPhaseFailed(rep report.Report) bool {
	specs, err := registry.For(rep.Type)
	if err != nil {
		return false
	}
	criticality := make(map[phase.ID]phase.Criticality, len(specs))
	for _, s := range specs {
		criticality[s.ID] = s.Criticality
	}
	for _, pr := range rep.PhaseReports {
		if pr.Status == workflow.Failed && criticality[pr.PhaseID] == phase.Critical {
			return true
		}
	}
	return false
}

func printReport(cmd *cobra.Command, rep report.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "workflow %s (%s): %s in %s\n", rep.WorkflowID, rep.Type, rep.Outcome, rep.TotalDuration)
	for _, pr := range rep.PhaseReports {
		suffix := ""
		if pr.NonFatal {
			suffix = " (non-fatal)"
		}
		if pr.Error != "" {
			fmt.Fprintf(out, "  %-24s %-10s attempts=%d error=%s%s\n", pr.PhaseID, pr.Status, pr.Attempts, pr.Error, suffix)
		} else {
			fmt.Fprintf(out, "  %-24s %-10s attempts=%d%s\n", pr.PhaseID, pr.Status, pr.Attempts, suffix)
		}
	}
	fmt.Fprintf(out, "total cost: %.4f (%d phases in ledger)\n", rep.LedgerSummary.GrandTotal, len(rep.LedgerSummary.ByPhase))
}
