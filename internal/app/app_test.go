package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anemonautas/meetingbot/config"
	"github.com/anemonautas/meetingbot/internal/llm"
	"github.com/anemonautas/meetingbot/internal/logging"
	"github.com/anemonautas/meetingbot/internal/storage"
)

func TestNewWiresDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.OutputDir = t.TempDir()

	a, err := New(cfg, logging.New("error", "text", nil))
	require.NoError(t, err)
	assert.IsType(t, &storage.Noop{}, a.Storage)
	assert.Same(t, a.Record, a.StartTask.Record)
	assert.Same(t, a.Brief, a.Record.Brief)
	assert.Nil(t, a.Record.Transcription.Transcriber, "no key, no transcriber")
	assert.Equal(t, 10, a.Record.ControlsMissingLimit)
	assert.NoError(t, a.Close())
}

func TestNewRejectsUnknownStorage(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Bucket = "b"
	cfg.Storage.Provider = "ftp"

	_, err := New(cfg, logging.New("error", "text", nil))
	assert.Error(t, err)
}

func TestProbesOverrides(t *testing.T) {
	cfg := config.Default()
	p := Probes(cfg)
	assert.NotEmpty(t, p.ExitPhrases, "built-in phrases when unset")

	cfg.Monitor.ExitPhrases = []string{"call is over"}
	cfg.Join.LoginURLPatterns = []string{"sso.example.com"}
	cfg.Join.ContinueLabels = []string{"Use web app"}
	cfg.Join.NoAudioLabels = []string{"Skip audio"}
	cfg.Join.DismissLabels = []string{"OK"}
	cfg.Join.JoinLabels = []string{"Enter call"}
	cfg.Join.ComputerAudioLabels = []string{"PC sound"}
	cfg.Join.NameFields = []string{"guest"}
	cfg.Monitor.InMeetingLabels = []string{"Mute"}
	cfg.Monitor.HangupSelectors = []string{"#end-call"}
	p = Probes(cfg)
	assert.Equal(t, []string{"call is over"}, p.ExitPhrases)
	assert.Equal(t, []string{"sso.example.com"}, p.LoginURLPatterns)
	assert.Equal(t, []string{"Use web app"}, p.ContinueInBrowser.Labels)
	assert.Equal(t, []string{"Skip audio"}, p.NoAudio.Labels)
	assert.Equal(t, []string{"OK"}, p.Dismiss.Labels)
	assert.Equal(t, []string{"Enter call"}, p.Join.Labels)
	assert.Equal(t, []string{"guest"}, p.NameFields)
	assert.Equal(t, []string{"PC sound"}, p.ComputerAudioLabels)
	require.NotEmpty(t, p.ComputerAudio)
	for _, probe := range p.ComputerAudio {
		assert.Equal(t, []string{"PC sound"}, probe.Labels)
	}
	assert.Equal(t, []string{"Mute"}, p.InMeeting.Labels)
	assert.Equal(t, []string{"#end-call"}, p.HangupSelectors)
	assert.Equal(t, []string{"button"}, p.InMeeting.Tags, "tags stay built in")
}

func TestProviderSelection(t *testing.T) {
	cfg := config.Default()
	cfg.AI.GeminiAPIKey = "g"
	assert.IsType(t, &llm.Gemini{}, transcriber(cfg))
	assert.IsType(t, &llm.Gemini{}, summarizer(cfg))

	cfg.AI.TranscriptionProvider = "mistral"
	assert.Nil(t, transcriber(cfg))
	cfg.AI.MistralAPIKey = "m"
	assert.IsType(t, &llm.Mistral{}, transcriber(cfg))

	cfg.AI.BriefingProvider = "anthropic"
	cfg.AI.AnthropicKey = "a"
	assert.IsType(t, &llm.Anthropic{}, summarizer(cfg))

	cfg.AI.BriefingProvider = ""
	assert.Nil(t, summarizer(cfg))
}

func TestWindowSize(t *testing.T) {
	w, h := windowSize("1280,720")
	assert.Equal(t, []int{1280, 720}, []int{w, h})
	w, h = windowSize("1366x768")
	assert.Equal(t, []int{1366, 768}, []int{w, h})
	w, h = windowSize("big")
	assert.Equal(t, []int{1920, 1080}, []int{w, h})
}
