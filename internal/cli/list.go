package cli

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/anemonautas/meetingbot/internal/domain/meeting"
	"github.com/anemonautas/meetingbot/internal/output"
)

func NewListCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(os.Stdout)

			entries, err := os.ReadDir(deps.Config.OutputDir)
			if err != nil {
				if os.IsNotExist(err) {
					formatter.Info("No tasks found")
					return nil
				}
				return err
			}

			var dirs []os.DirEntry
			for _, e := range entries {
				if e.IsDir() {
					dirs = append(dirs, e)
				}
			}

			if len(dirs) == 0 {
				formatter.Info("No tasks found")
				return nil
			}

			// Task ids start with the date, newest first
			sort.Slice(dirs, func(i, j int) bool {
				return dirs[i].Name() > dirs[j].Name()
			})

			formatter.TaskListHeader()
			for _, d := range dirs {
				s := summarizeTaskDir(filepath.Join(deps.Config.OutputDir, d.Name()), d.Name())
				formatter.TaskListItem(d.Name(), s.segments, s.transcripts, s.briefing)
			}

			return nil
		},
	}

	return cmd
}

type taskDirSummary struct {
	segments    int
	transcripts int
	briefing    bool
}

func summarizeTaskDir(dir, taskID string) taskDirSummary {
	var s taskDirSummary
	task := &meeting.Task{ID: taskID, Dir: dir}

	if entries, err := os.ReadDir(dir); err == nil {
		for _, e := range entries {
			if _, ok := meeting.ParseSegmentIndex(e.Name()); ok {
				s.segments++
			}
		}
	}
	if entries, err := os.ReadDir(task.TranscriptionsDir()); err == nil {
		for _, e := range entries {
			if _, ok := meeting.ParseTranscriptIndex(taskID, e.Name()); ok {
				s.transcripts++
			}
		}
	}
	_, err := os.Stat(task.BriefingPath())
	s.briefing = err == nil
	return s
}
