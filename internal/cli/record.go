package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/spf13/cobra"

	"github.com/anemonautas/meetingbot/internal/domain/meeting/usecases"
	"github.com/anemonautas/meetingbot/internal/output"
)

type recordFlags struct {
	url            string
	duration       time.Duration
	audio          bool
	video          bool
	taskID         string
	segmentSeconds int
}

func NewRecordCmd(deps *Dependencies) *cobra.Command {
	var flags recordFlags

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Join a meeting and record it",
		Long:  "Join the meeting at --url, record until it ends or --duration elapses, then transcribe and brief.\nCtrl+C stops the recording and still finalizes the task.",
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(os.Stdout)

			if err := checkDiskSpace(deps.Config.OutputDir, deps.Config.MinFreeDiskMB); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			deps.App.StartTask.Lifetime = ctx

			acc, reports, err := deps.App.StartTask.Execute(ctx, startOptions(cmd, &flags, deps))
			if err != nil {
				return err
			}
			formatter.TaskAccepted(acc, filepath.Join(deps.Config.OutputDir, acc.TaskID))

			report := <-reports
			formatter.TaskFinished(report)
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.url, "url", "u", "", "Meeting URL (required)")
	cmd.Flags().DurationVarP(&flags.duration, "duration", "d", 0, "Maximum recording time (default from config)")
	cmd.Flags().BoolVar(&flags.audio, "audio", true, "Record audio")
	cmd.Flags().BoolVar(&flags.video, "video", false, "Record the screen to recording.mp4")
	cmd.Flags().StringVar(&flags.taskID, "task-id", "", "Task id (generated when empty)")
	cmd.Flags().IntVar(&flags.segmentSeconds, "segment-seconds", 0, "Audio segment length (default from config)")
	_ = cmd.MarkFlagRequired("url")

	return cmd
}

// startOptions maps flags to options. Unset modality flags fall back to
// the configured defaults.
func startOptions(cmd *cobra.Command, flags *recordFlags, deps *Dependencies) *usecases.StartOptions {
	audio, video := deps.Config.RecordAudio, deps.Config.RecordVideo
	if cmd.Flags().Changed("audio") {
		audio = flags.audio
	}
	if cmd.Flags().Changed("video") {
		video = flags.video
	}
	return &usecases.StartOptions{
		MeetingURL:     flags.url,
		Duration:       flags.duration,
		RecordAudio:    &audio,
		RecordVideo:    &video,
		TaskID:         flags.taskID,
		SegmentSeconds: flags.segmentSeconds,
	}
}

func checkDiskSpace(dir string, minFreeMB uint64) error {
	if minFreeMB == 0 {
		return nil
	}
	usage, err := disk.Usage(dir)
	if err != nil {
		// not fatal: the encoders report their own write errors
		return nil
	}
	if free := usage.Free / (1 << 20); free < minFreeMB {
		return fmt.Errorf("only %d MB free in %s, need at least %d MB", free, dir, minFreeMB)
	}
	return nil
}
