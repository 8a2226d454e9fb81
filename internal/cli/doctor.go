package cli

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/spf13/cobra"

	"github.com/anemonautas/meetingbot/config"
	"github.com/anemonautas/meetingbot/internal/output"
)

var chromeCandidates = []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser"}

func NewDoctorCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check prerequisites",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := output.NewFormatter(os.Stdout)
			cfg := deps.Config
			ok := true

			if err := deps.App.Recorder.CheckFFmpeg(); err != nil {
				f.SetupCheck("ffmpeg", false, err.Error())
				ok = false
			} else {
				f.SetupCheck("ffmpeg", true, "installed")
			}

			if _, err := exec.LookPath(cfg.Audio.PactlPath); err != nil {
				f.SetupCheck("pactl", false, "not found. Install with: apt-get install pulseaudio-utils")
				ok = false
			} else {
				f.SetupCheck("pactl", true, "installed")
			}

			if chrome := findChrome(cfg.Browser.ChromePath); chrome != "" {
				f.SetupCheck("Chrome", true, chrome)
			} else {
				f.SetupCheck("Chrome", false, "not found. Set CHROME_PATH or install chromium")
				ok = false
			}

			for _, c := range aiChecks(cfg) {
				f.SetupCheck(c.name, c.ok, c.detail)
			}

			if cfg.Storage.Bucket != "" {
				f.SetupCheck("Storage", true, fmt.Sprintf("%s bucket %s", storageProviderName(cfg.Storage.Provider), cfg.Storage.Bucket))
			} else {
				f.SetupCheck("Storage", false, "no bucket configured, uploads are skipped")
			}

			if cfg.Mail.APIKey != "" && len(cfg.Mail.To) > 0 {
				f.SetupCheck("Mail", true, strings.Join(cfg.Mail.To, ", "))
			} else {
				f.SetupCheck("Mail", false, "not configured, briefings are not mailed")
			}

			if usage, err := disk.Usage(cfg.OutputDir); err == nil {
				freeMB := usage.Free / (1 << 20)
				enough := freeMB >= cfg.MinFreeDiskMB
				f.SetupCheck("Output directory", enough, fmt.Sprintf("%s (%d MB free)", cfg.OutputDir, freeMB))
				ok = ok && enough
			} else {
				f.SetupCheck("Output directory", false, err.Error())
				ok = false
			}

			if ok {
				f.Success("\nAll prerequisites met. Ready to record!")
			} else {
				f.Warning("\nSome prerequisites are missing.")
			}
			return nil
		},
	}
}

func findChrome(configured string) string {
	if configured != "" {
		if p, err := exec.LookPath(configured); err == nil {
			return p
		}
		return ""
	}
	for _, name := range chromeCandidates {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	return ""
}

type check struct {
	name   string
	ok     bool
	detail string
}

func aiChecks(cfg *config.Config) []check {
	key := func(provider string) (string, string) {
		switch strings.ToLower(provider) {
		case "mistral":
			return cfg.AI.MistralAPIKey, "MEETINGBOT_MISTRAL_API_KEY"
		case "anthropic":
			return cfg.AI.AnthropicKey, "MEETINGBOT_ANTHROPIC_API_KEY"
		default:
			return cfg.AI.GeminiAPIKey, "GEMINI_API_KEY"
		}
	}

	var checks []check
	if k, env := key(cfg.AI.TranscriptionProvider); k != "" {
		checks = append(checks, check{"Transcription", true, aiProviderName(cfg.AI.TranscriptionProvider) + " configured"})
	} else {
		checks = append(checks, check{"Transcription", false, "not set. Set " + env + " or add to config"})
	}

	if cfg.AI.BriefingProvider == "" {
		return append(checks, check{"Briefing", false, "disabled"})
	}
	if k, env := key(cfg.AI.BriefingProvider); k != "" {
		checks = append(checks, check{"Briefing", true, aiProviderName(cfg.AI.BriefingProvider) + " configured"})
	} else {
		checks = append(checks, check{"Briefing", false, "not set. Set " + env + " or add to config"})
	}
	return checks
}

func aiProviderName(p string) string {
	if p == "" {
		return "gemini"
	}
	return strings.ToLower(p)
}

func storageProviderName(p string) string {
	if p == "" {
		return "gcs"
	}
	return strings.ToLower(p)
}
