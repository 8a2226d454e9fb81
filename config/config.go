package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultBriefingPrompt is used when no custom prompt is configured.
const DefaultBriefingPrompt = `You are a meeting secretary. Given a meeting transcript with speaker labels, write a briefing e-mail.

Respond with a single JSON object with exactly two string fields:
- "subject": a short subject line naming the meeting topic
- "htmlBody": the briefing as simple HTML with sections for Summary, Key Decisions, Action Items and Discussion Highlights

Omit sections with no content. Be concise but don't miss important details.`

// DefaultTranscriptionPrompt asks for a speaker-labeled transcript.
const DefaultTranscriptionPrompt = "Extract a complete transcript labeling the different speakers."

type Config struct {
	OutputDir    string
	ProfileRoot  string // parent of the disposable browser profiles
	LogLevel     string
	LogFormat    string // "text" or "json"
	ExitOnFinish bool

	// Recording defaults for tasks that do not set them.
	DefaultDuration time.Duration
	SegmentSeconds  int
	RecordAudio     bool
	RecordVideo     bool
	MinFreeDiskMB   uint64

	Browser  Browser
	Join     Join
	Monitor  Monitor
	Audio    Audio
	Storage  Storage
	Pipeline Pipeline
	AI       AI
	Mail     Mail
}

type Browser struct {
	ChromePath  string
	AvatarY4M   string
	WindowSize  string // "1920,1080"
	Language    string
	CallTimeout time.Duration
}

type Join struct {
	DisplayName      string
	MaxWait          time.Duration
	PollInterval     time.Duration
	SettleInterval   time.Duration
	ContinueWait     time.Duration
	DOMReadyTimeout  time.Duration
	LoginURLPatterns []string

	// Probe vocabulary overrides; empty keeps the built-in list.
	ContinueLabels      []string
	NoAudioLabels       []string
	DismissLabels       []string
	JoinLabels          []string
	ComputerAudioLabels []string
	NameFields          []string
}

type Monitor struct {
	PollInterval         time.Duration
	ControlsMissingLimit int
	ExitPhrases          []string
	InMeetingLabels      []string
	HangupSelectors      []string
	WorkerWaitTimeout    time.Duration
	EncoderStopGrace     time.Duration
	DismissAttempts      int
}

type Audio struct {
	FFmpegPath      string
	PactlPath       string
	PreferredSource string
	CaptureSink     string
	ResolveAttempts int
	ResolveInterval time.Duration
	EnforceInterval time.Duration
	StartupGrace    time.Duration
	Display         string
	VideoSize       string
	Framerate       int
	Bitrate         string
}

type Storage struct {
	Provider        string // "gcs", "s3" or "" (disabled)
	Bucket          string
	Prefix          string
	CredentialsFile string
	Region          string
	Endpoint        string
}

type Pipeline struct {
	MaxWorkers int
}

type AI struct {
	TranscriptionProvider string // "gemini" or "mistral"
	BriefingProvider      string // "gemini", "anthropic" or "" (disabled)
	GeminiAPIKey          string
	GeminiModel           string
	MistralAPIKey         string
	AnthropicKey          string
	TranscriptionPrompt   string
	BriefingPrompt        string
}

type Mail struct {
	APIKey string
	From   string
	To     []string
}

type fileConfig struct {
	OutputDir       string `toml:"output_dir"`
	ProfileRoot     string `toml:"profile_root"`
	LogLevel        string `toml:"log_level"`
	LogFormat       string `toml:"log_format"`
	ExitOnFinish    *bool  `toml:"exit_on_finish"`
	DefaultDuration int    `toml:"default_duration_seconds"`
	SegmentSeconds  int    `toml:"segment_seconds"`
	MinFreeDiskMB   uint64 `toml:"min_free_disk_mb"`

	Browser struct {
		ChromePath string `toml:"chrome_path"`
		AvatarY4M  string `toml:"avatar_y4m"`
		Language   string `toml:"language"`
	} `toml:"browser"`

	Join struct {
		DisplayName         string   `toml:"display_name"`
		MaxWaitSeconds      int      `toml:"max_wait_seconds"`
		LoginURLPatterns    []string `toml:"login_url_patterns"`
		ContinueLabels      []string `toml:"continue_labels"`
		NoAudioLabels       []string `toml:"no_audio_labels"`
		DismissLabels       []string `toml:"dismiss_labels"`
		JoinLabels          []string `toml:"join_labels"`
		ComputerAudioLabels []string `toml:"computer_audio_labels"`
		NameFields          []string `toml:"name_fields"`
	} `toml:"join"`

	Monitor struct {
		PollSeconds          int      `toml:"poll_seconds"`
		ControlsMissingLimit int      `toml:"controls_missing_limit"`
		ExitPhrases          []string `toml:"exit_phrases"`
		InMeetingLabels      []string `toml:"in_meeting_labels"`
		HangupSelectors      []string `toml:"hangup_selectors"`
		WorkerWaitSeconds    int      `toml:"worker_wait_seconds"`
	} `toml:"monitor"`

	Audio struct {
		PreferredSource string `toml:"preferred_source"`
		CaptureSink     string `toml:"capture_sink"`
		Bitrate         string `toml:"bitrate"`
		Display         string `toml:"display"`
	} `toml:"audio"`

	Storage struct {
		Provider        string `toml:"provider"`
		Bucket          string `toml:"bucket"`
		Prefix          string `toml:"prefix"`
		CredentialsFile string `toml:"credentials_file"`
		Region          string `toml:"region"`
		Endpoint        string `toml:"endpoint"`
	} `toml:"storage"`

	Pipeline struct {
		MaxWorkers int `toml:"max_workers"`
	} `toml:"pipeline"`

	AI struct {
		TranscriptionProvider string `toml:"transcription_provider"`
		BriefingProvider      string `toml:"briefing_provider"`
		GeminiAPIKey          string `toml:"gemini_api_key"`
		GeminiModel           string `toml:"gemini_model"`
		MistralAPIKey         string `toml:"mistral_api_key"`
		AnthropicKey          string `toml:"anthropic_api_key"`
		BriefingPrompt        string `toml:"briefing_prompt"`
	} `toml:"ai"`

	Mail struct {
		APIKey string   `toml:"api_key"`
		From   string   `toml:"from"`
		To     []string `toml:"to"`
	} `toml:"mail"`
}

// Default returns the built-in configuration before any file or
// environment overrides are applied.
func Default() *Config {
	return &Config{
		OutputDir:       "/output",
		ProfileRoot:     os.TempDir(),
		LogLevel:        "info",
		LogFormat:       "text",
		ExitOnFinish:    false,
		DefaultDuration: time.Hour,
		SegmentSeconds:  300,
		RecordAudio:     true,
		RecordVideo:     false,
		MinFreeDiskMB:   512,
		Browser: Browser{
			ChromePath:  "",
			WindowSize:  "1920,1080",
			Language:    "en-US",
			CallTimeout: 15 * time.Second,
		},
		Join: Join{
			DisplayName:      "Scribe!",
			MaxWait:          120 * time.Second,
			PollInterval:     2 * time.Second,
			SettleInterval:   5 * time.Second,
			ContinueWait:     3 * time.Second,
			DOMReadyTimeout:  30 * time.Second,
			LoginURLPatterns: []string{"login.microsoft", "login.live.com", "accounts.google.com"},
		},
		Monitor: Monitor{
			PollInterval:         2 * time.Second,
			ControlsMissingLimit: 10,
			WorkerWaitTimeout:    30 * time.Second,
			EncoderStopGrace:     5 * time.Second,
			DismissAttempts:      3,
		},
		Audio: Audio{
			FFmpegPath:      "ffmpeg",
			PactlPath:       "pactl",
			PreferredSource: "VirtualSpeaker.monitor",
			CaptureSink:     "VirtualSpeaker",
			ResolveAttempts: 5,
			ResolveInterval: time.Second,
			EnforceInterval: 2 * time.Second,
			StartupGrace:    time.Second,
			Display:         ":99",
			VideoSize:       "1920x1080",
			Framerate:       30,
			Bitrate:         "128k",
		},
		Pipeline: Pipeline{MaxWorkers: 4},
		AI: AI{
			TranscriptionProvider: "gemini",
			BriefingProvider:      "gemini",
			GeminiModel:           "gemini-flash-latest",
			TranscriptionPrompt:   DefaultTranscriptionPrompt,
			BriefingPrompt:        DefaultBriefingPrompt,
		},
		Mail: Mail{
			From: "Scribe <scribe@localhost>",
		},
	}
}

func Load() (*Config, error) {
	cfg := Default()

	if configPath := configFilePath(); configPath != "" {
		var fc fileConfig
		if _, err := toml.DecodeFile(configPath, &fc); err == nil {
			applyFile(cfg, &fc)
		}
	}

	applyEnvOverrides(cfg)

	// Ensure directories exist
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyFile(cfg *Config, fc *fileConfig) {
	setString(&cfg.OutputDir, expandTilde(fc.OutputDir))
	setString(&cfg.ProfileRoot, expandTilde(fc.ProfileRoot))
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.LogFormat, fc.LogFormat)
	if fc.ExitOnFinish != nil {
		cfg.ExitOnFinish = *fc.ExitOnFinish
	}
	setSeconds(&cfg.DefaultDuration, fc.DefaultDuration)
	setInt(&cfg.SegmentSeconds, fc.SegmentSeconds)
	if fc.MinFreeDiskMB > 0 {
		cfg.MinFreeDiskMB = fc.MinFreeDiskMB
	}

	setString(&cfg.Browser.ChromePath, fc.Browser.ChromePath)
	setString(&cfg.Browser.AvatarY4M, expandTilde(fc.Browser.AvatarY4M))
	setString(&cfg.Browser.Language, fc.Browser.Language)

	setString(&cfg.Join.DisplayName, fc.Join.DisplayName)
	setSeconds(&cfg.Join.MaxWait, fc.Join.MaxWaitSeconds)
	setList(&cfg.Join.LoginURLPatterns, fc.Join.LoginURLPatterns)
	setList(&cfg.Join.ContinueLabels, fc.Join.ContinueLabels)
	setList(&cfg.Join.NoAudioLabels, fc.Join.NoAudioLabels)
	setList(&cfg.Join.DismissLabels, fc.Join.DismissLabels)
	setList(&cfg.Join.JoinLabels, fc.Join.JoinLabels)
	setList(&cfg.Join.ComputerAudioLabels, fc.Join.ComputerAudioLabels)
	setList(&cfg.Join.NameFields, fc.Join.NameFields)

	setSeconds(&cfg.Monitor.PollInterval, fc.Monitor.PollSeconds)
	setInt(&cfg.Monitor.ControlsMissingLimit, fc.Monitor.ControlsMissingLimit)
	setSeconds(&cfg.Monitor.WorkerWaitTimeout, fc.Monitor.WorkerWaitSeconds)
	setList(&cfg.Monitor.ExitPhrases, fc.Monitor.ExitPhrases)
	setList(&cfg.Monitor.InMeetingLabels, fc.Monitor.InMeetingLabels)
	setList(&cfg.Monitor.HangupSelectors, fc.Monitor.HangupSelectors)

	setString(&cfg.Audio.PreferredSource, fc.Audio.PreferredSource)
	setString(&cfg.Audio.CaptureSink, fc.Audio.CaptureSink)
	setString(&cfg.Audio.Bitrate, fc.Audio.Bitrate)
	setString(&cfg.Audio.Display, fc.Audio.Display)

	setString(&cfg.Storage.Provider, fc.Storage.Provider)
	setString(&cfg.Storage.Bucket, fc.Storage.Bucket)
	setString(&cfg.Storage.Prefix, strings.TrimRight(fc.Storage.Prefix, "/"))
	setString(&cfg.Storage.CredentialsFile, expandTilde(fc.Storage.CredentialsFile))
	setString(&cfg.Storage.Region, fc.Storage.Region)
	setString(&cfg.Storage.Endpoint, fc.Storage.Endpoint)

	setInt(&cfg.Pipeline.MaxWorkers, fc.Pipeline.MaxWorkers)

	setString(&cfg.AI.TranscriptionProvider, fc.AI.TranscriptionProvider)
	setString(&cfg.AI.BriefingProvider, fc.AI.BriefingProvider)
	setString(&cfg.AI.GeminiAPIKey, fc.AI.GeminiAPIKey)
	setString(&cfg.AI.GeminiModel, fc.AI.GeminiModel)
	setString(&cfg.AI.MistralAPIKey, fc.AI.MistralAPIKey)
	setString(&cfg.AI.AnthropicKey, fc.AI.AnthropicKey)
	setString(&cfg.AI.BriefingPrompt, fc.AI.BriefingPrompt)

	setString(&cfg.Mail.APIKey, fc.Mail.APIKey)
	setString(&cfg.Mail.From, fc.Mail.From)
	setList(&cfg.Mail.To, fc.Mail.To)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OUTPUT_DIR"); v != "" {
		cfg.OutputDir = expandTilde(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v, ok := envBool("EXIT_ON_FINISH"); ok {
		cfg.ExitOnFinish = v
	}
	if v, err := strconv.Atoi(os.Getenv("SEGMENT_SECONDS")); err == nil && v > 0 {
		cfg.SegmentSeconds = v
	}
	if v, err := strconv.Atoi(os.Getenv("DURATION")); err == nil && v > 0 {
		cfg.DefaultDuration = time.Duration(v) * time.Second
	}
	if v, ok := envBool("RECORD_AUDIO"); ok {
		cfg.RecordAudio = v
	}
	if v, ok := envBool("RECORD_VIDEO"); ok {
		cfg.RecordVideo = v
	}
	if v := os.Getenv("AVATAR_Y4M"); v != "" {
		cfg.Browser.AvatarY4M = v
	}
	if v := os.Getenv("CHROME_PATH"); v != "" {
		cfg.Browser.ChromePath = v
	}
	if v := os.Getenv("GCS_BUCKET"); v != "" {
		cfg.Storage.Bucket = v
		if cfg.Storage.Provider == "" {
			cfg.Storage.Provider = "gcs"
		}
	}
	if v := os.Getenv("GCS_PREFIX"); v != "" {
		cfg.Storage.Prefix = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("S3_BUCKET"); v != "" {
		cfg.Storage.Bucket = v
		if cfg.Storage.Provider == "" {
			cfg.Storage.Provider = "s3"
		}
	}
	if v := os.Getenv("STORAGE_PROVIDER"); v != "" {
		cfg.Storage.Provider = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.Storage.Region = v
	}
	if v := os.Getenv("S3_ENDPOINT"); v != "" {
		cfg.Storage.Endpoint = v
	}
	if v := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); v != "" && cfg.Storage.CredentialsFile == "" {
		cfg.Storage.CredentialsFile = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.AI.GeminiAPIKey = v
	}
	if v := os.Getenv("MEETINGBOT_MISTRAL_API_KEY"); v != "" {
		cfg.AI.MistralAPIKey = v
	}
	if v := os.Getenv("MEETINGBOT_ANTHROPIC_API_KEY"); v != "" {
		cfg.AI.AnthropicKey = v
	}
	if v := os.Getenv("SENDER_API_KEY"); v != "" {
		cfg.Mail.APIKey = v
	}
	if v := os.Getenv("MAIL_TO"); v != "" {
		cfg.Mail.To = strings.Split(v, ",")
	}
}

func configFilePath() string {
	if p := os.Getenv("MEETINGBOT_CONFIG"); p != "" {
		return expandTilde(p)
	}

	var configDir string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		configDir = filepath.Join(xdg, "meetingbot")
	} else if home, err := os.UserHomeDir(); err == nil {
		configDir = filepath.Join(home, ".config", "meetingbot")
	} else {
		return ""
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

func envBool(name string) (bool, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return false, false
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y":
		return true, true
	default:
		return false, true
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

// setList replaces dst when v has at least one non-blank entry.
func setList(dst *[]string, v []string) {
	var kept []string
	for _, s := range v {
		if s = strings.TrimSpace(s); s != "" {
			kept = append(kept, s)
		}
	}
	if len(kept) > 0 {
		*dst = kept
	}
}

func setSeconds(dst *time.Duration, v int) {
	if v > 0 {
		*dst = time.Duration(v) * time.Second
	}
}

func expandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
