package cmdline

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/castforge/castforge/internal/apperrors"
	"github.com/castforge/castforge/internal/orchestrator"
	"github.com/castforge/castforge/internal/workflow"
)

var resumeID string

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a workflow run from its last checkpoint",
	RunE:  runResume,
}

func init() {
	resumeCmd.Flags().StringVar(&resumeID, "id", "", "workflow ID to resume (required)")
	resumeCmd.MarkFlagRequired("id")
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := withSignalCancel(cmd.Context())
	defer cancel()

	facade, cleanup, err := buildFacade(ctx, cfg, logger)
	defer cleanup()
	if err != nil {
		return err
	}

	rep, err := facade.Resume(ctx, workflow.ID(resumeID))
	if err != nil {
		var notFound *orchestrator.NotFoundError
		if errors.As(err, &notFound) {
			return exitWith(1, err)
		}
		return exitWith(3, apperrors.FailedTo("resume workflow", err))
	}
	return reportOutcome(cmd, rep)
}
