package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/anemonautas/meetingbot/internal/domain/meeting"
	"github.com/anemonautas/meetingbot/internal/output"
)

func NewBriefCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "brief <task-id>",
		Short: "Summarize and mail the transcripts of a recorded task",
		Long:  "Re-run the briefing for a finished task from its saved transcripts.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(os.Stdout)

			task := &meeting.Task{ID: args[0], Dir: filepath.Join(deps.Config.OutputDir, args[0])}
			if _, err := os.Stat(task.Dir); err != nil {
				return fmt.Errorf("task %s not found in %s", task.ID, deps.Config.OutputDir)
			}

			briefing, err := deps.App.Brief.Execute(cmd.Context(), task)
			if briefing != nil {
				formatter.BriefingDone(task.BriefingPath(), briefing.Subject)
			} else if err == nil {
				formatter.Info("Nothing to brief")
			}
			return err
		},
	}
}
