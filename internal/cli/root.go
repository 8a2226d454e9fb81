package cli

import (
	"github.com/spf13/cobra"

	"github.com/anemonautas/meetingbot/config"
	"github.com/anemonautas/meetingbot/internal/app"
	"github.com/anemonautas/meetingbot/internal/version"
)

type Dependencies struct {
	App    *app.App
	Config *config.Config
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "meetingbot",
		Short: "Attend online meetings, record, transcribe and brief",
		Long:  "A bot that joins a video meeting in headless Chrome, records its audio in segments, transcribes them while the meeting runs, and mails a briefing at the end.",
	}

	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(version.Full() + "\n")
	rootCmd.SilenceUsage = true

	rootCmd.AddCommand(NewRecordCmd(deps))
	rootCmd.AddCommand(NewBriefCmd(deps))
	rootCmd.AddCommand(NewListCmd(deps))
	rootCmd.AddCommand(NewDoctorCmd(deps))

	return rootCmd
}
