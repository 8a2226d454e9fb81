package app

import (
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anemonautas/meetingbot/config"
	"github.com/anemonautas/meetingbot/internal/audio"
	"github.com/anemonautas/meetingbot/internal/browser"
	"github.com/anemonautas/meetingbot/internal/domain/meeting"
	"github.com/anemonautas/meetingbot/internal/domain/meeting/usecases"
	"github.com/anemonautas/meetingbot/internal/llm"
	"github.com/anemonautas/meetingbot/internal/logging"
	"github.com/anemonautas/meetingbot/internal/notify"
	"github.com/anemonautas/meetingbot/internal/storage"
)

type App struct {
	StartTask *usecases.StartTask
	Record    *usecases.RecordMeeting
	Brief     *usecases.Brief
	Recorder  *audio.Recorder
	Storage   storage.Uploader
	Log       *logrus.Logger
}

func New(cfg *config.Config, log *logrus.Logger) (*App, error) {
	uploader, err := storage.New(storage.Config{
		Provider:        cfg.Storage.Provider,
		Bucket:          cfg.Storage.Bucket,
		Prefix:          cfg.Storage.Prefix,
		CredentialsFile: cfg.Storage.CredentialsFile,
		Region:          cfg.Storage.Region,
		Endpoint:        cfg.Storage.Endpoint,
	}, logging.Component(log, "storage"))
	if err != nil {
		return nil, err
	}

	runner := audio.ExecRunner{}
	recorder := &audio.Recorder{
		FFmpeg:       cfg.Audio.FFmpegPath,
		Display:      cfg.Audio.Display,
		VideoSize:    cfg.Audio.VideoSize,
		Framerate:    cfg.Audio.Framerate,
		StartupGrace: cfg.Audio.StartupGrace,
		Log:          logging.Component(log, "capture"),
	}

	probes := Probes(cfg)

	transcription := &usecases.TranscribeSegment{
		Transcriber: transcriber(cfg),
		Uploader:    uploader,
		Log:         logging.Component(log, "transcription"),
	}

	brief := &usecases.Brief{
		Summarizer: summarizer(cfg),
		Notifier: notify.New(notify.Config{
			APIKey: cfg.Mail.APIKey,
			From:   cfg.Mail.From,
			To:     cfg.Mail.To,
		}, logging.Component(log, "mail")),
		Uploader: uploader,
		Log:      logging.Component(log, "briefing"),
	}

	width, height := windowSize(cfg.Browser.WindowSize)
	record := &usecases.RecordMeeting{
		Browser: chromeLauncher{
			opts: browser.Options{
				ExecPath:     cfg.Browser.ChromePath,
				ProfileRoot:  cfg.ProfileRoot,
				AvatarY4M:    cfg.Browser.AvatarY4M,
				WindowWidth:  width,
				WindowHeight: height,
				Language:     cfg.Browser.Language,
				CallTimeout:  cfg.Browser.CallTimeout,
			},
			log: logging.Component(log, "browser"),
		},
		Join: &usecases.JoinMeeting{
			Probes:          probes,
			DisplayName:     cfg.Join.DisplayName,
			MaxWait:         cfg.Join.MaxWait,
			PollInterval:    cfg.Join.PollInterval,
			SettleInterval:  cfg.Join.SettleInterval,
			ContinueWait:    cfg.Join.ContinueWait,
			DOMReadyTimeout: cfg.Join.DOMReadyTimeout,
			Log:             logging.Component(log, "join"),
		},
		Resolver: &audio.SourceResolver{
			Runner:    runner,
			Pactl:     cfg.Audio.PactlPath,
			Preferred: cfg.Audio.PreferredSource,
			Attempts:  cfg.Audio.ResolveAttempts,
			Interval:  cfg.Audio.ResolveInterval,
			Log:       logging.Component(log, "audio"),
		},
		Enforcer: &audio.RoutingEnforcer{
			Runner:   runner,
			Pactl:    cfg.Audio.PactlPath,
			Sink:     cfg.Audio.CaptureSink,
			Interval: cfg.Audio.EnforceInterval,
			Log:      logging.Component(log, "enforcer"),
		},
		Capture: ffmpegCapture{recorder},

		Compressor:    &audio.Compressor{FFmpeg: cfg.Audio.FFmpegPath, Bitrate: cfg.Audio.Bitrate},
		Uploader:      uploader,
		Transcription: transcription,
		Brief:         brief,
		MaxWorkers:    cfg.Pipeline.MaxWorkers,

		Probes:               probes,
		PollInterval:         cfg.Monitor.PollInterval,
		ControlsMissingLimit: cfg.Monitor.ControlsMissingLimit,
		DismissAttempts:      cfg.Monitor.DismissAttempts,
		WorkerWaitTimeout:    cfg.Monitor.WorkerWaitTimeout,
		EncoderStopGrace:     cfg.Monitor.EncoderStopGrace,
		ProfileRetryDelay:    time.Second,

		ExitOnFinish: cfg.ExitOnFinish,
		Log:          logging.Component(log, "recorder"),
	}

	startTask := &usecases.StartTask{
		Record:                record,
		OutputDir:             cfg.OutputDir,
		DefaultDuration:       cfg.DefaultDuration,
		DefaultSegmentSeconds: cfg.SegmentSeconds,
		Log:                   log,
	}

	return &App{
		StartTask: startTask,
		Record:    record,
		Brief:     brief,
		Recorder:  recorder,
		Storage:   uploader,
		Log:       log,
	}, nil
}

// Close releases storage clients.
func (a *App) Close() error {
	if c, ok := a.Storage.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Probes returns the built-in probe vocabulary with configured overrides.
func Probes(cfg *config.Config) browser.Probes {
	p := browser.DefaultProbes()
	override(&p.LoginURLPatterns, cfg.Join.LoginURLPatterns)
	override(&p.ContinueInBrowser.Labels, cfg.Join.ContinueLabels)
	override(&p.NoAudio.Labels, cfg.Join.NoAudioLabels)
	override(&p.Dismiss.Labels, cfg.Join.DismissLabels)
	override(&p.Join.Labels, cfg.Join.JoinLabels)
	override(&p.NameFields, cfg.Join.NameFields)
	if len(cfg.Join.ComputerAudioLabels) > 0 {
		for i := range p.ComputerAudio {
			p.ComputerAudio[i].Labels = cfg.Join.ComputerAudioLabels
		}
		p.ComputerAudioLabels = cfg.Join.ComputerAudioLabels
	}
	override(&p.InMeeting.Labels, cfg.Monitor.InMeetingLabels)
	override(&p.HangupSelectors, cfg.Monitor.HangupSelectors)
	override(&p.ExitPhrases, cfg.Monitor.ExitPhrases)
	return p
}

func override(dst *[]string, v []string) {
	if len(v) > 0 {
		*dst = v
	}
}

// transcriber returns nil when the selected provider has no key, which
// makes segment transcription a logged no-op.
func transcriber(cfg *config.Config) usecases.Transcriber {
	switch strings.ToLower(cfg.AI.TranscriptionProvider) {
	case "mistral":
		if cfg.AI.MistralAPIKey != "" {
			return &llm.Mistral{APIKey: cfg.AI.MistralAPIKey}
		}
	case "gemini", "":
		if cfg.AI.GeminiAPIKey != "" {
			return &llm.Gemini{
				APIKey:              cfg.AI.GeminiAPIKey,
				Model:               cfg.AI.GeminiModel,
				TranscriptionPrompt: cfg.AI.TranscriptionPrompt,
				BriefingPrompt:      cfg.AI.BriefingPrompt,
			}
		}
	}
	return nil
}

func summarizer(cfg *config.Config) usecases.Summarizer {
	switch strings.ToLower(cfg.AI.BriefingProvider) {
	case "anthropic":
		if cfg.AI.AnthropicKey != "" {
			return &llm.Anthropic{APIKey: cfg.AI.AnthropicKey, SystemPrompt: cfg.AI.BriefingPrompt}
		}
	case "gemini":
		if cfg.AI.GeminiAPIKey != "" {
			return &llm.Gemini{
				APIKey:         cfg.AI.GeminiAPIKey,
				Model:          cfg.AI.GeminiModel,
				BriefingPrompt: cfg.AI.BriefingPrompt,
			}
		}
	}
	return nil
}

func windowSize(s string) (int, int) {
	w, h, ok := strings.Cut(s, ",")
	if !ok {
		w, h, ok = strings.Cut(s, "x")
	}
	width, werr := strconv.Atoi(strings.TrimSpace(w))
	height, herr := strconv.Atoi(strings.TrimSpace(h))
	if !ok || werr != nil || herr != nil {
		return 1920, 1080
	}
	return width, height
}

type chromeLauncher struct {
	opts browser.Options
	log  logrus.FieldLogger
}

func (l chromeLauncher) Launch(ctx context.Context, taskID string) (usecases.Browser, error) {
	s, err := browser.Launch(ctx, taskID, l.opts, logging.ForTask(l.log, taskID))
	if err != nil {
		return nil, err
	}
	return s, nil
}

type ffmpegCapture struct {
	rec *audio.Recorder
}

func (c ffmpegCapture) StartAudio(ctx context.Context, task *meeting.Task, source string) (usecases.Encoder, error) {
	enc, err := c.rec.StartAudio(ctx, task, source)
	if err != nil {
		return nil, err
	}
	return enc, nil
}

func (c ffmpegCapture) StartVideo(ctx context.Context, task *meeting.Task) (usecases.Encoder, error) {
	enc, err := c.rec.StartVideo(ctx, task)
	if err != nil {
		return nil, err
	}
	return enc, nil
}
