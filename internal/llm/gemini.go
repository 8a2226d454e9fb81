package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"google.golang.org/genai"

	"github.com/anemonautas/meetingbot/internal/domain/meeting"
)

// Gemini transcribes audio and writes briefings with the Gemini API.
type Gemini struct {
	APIKey              string
	Model               string
	TranscriptionPrompt string
	BriefingPrompt      string

	once      sync.Once
	client    *genai.Client
	clientErr error
}

func (g *Gemini) connect(ctx context.Context) (*genai.Client, error) {
	if g.APIKey == "" {
		return nil, errors.New("gemini API key not set: set GEMINI_API_KEY or add gemini_api_key to config")
	}
	g.once.Do(func() {
		g.client, g.clientErr = genai.NewClient(context.WithoutCancel(ctx), &genai.ClientConfig{
			APIKey:  g.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
	})
	if g.clientErr != nil {
		return nil, fmt.Errorf("creating gemini client: %w", g.clientErr)
	}
	return g.client, nil
}

// Transcribe uploads the audio file and asks for a speaker-labeled transcript.
func (g *Gemini) Transcribe(ctx context.Context, audioPath string) (string, error) {
	client, err := g.connect(ctx)
	if err != nil {
		return "", err
	}

	file, err := client.Files.UploadFromPath(ctx, audioPath, &genai.UploadFileConfig{MIMEType: "audio/mpeg"})
	if err != nil {
		return "", fmt.Errorf("uploading %s to gemini: %w", audioPath, err)
	}

	parts := []*genai.Part{
		genai.NewPartFromURI(file.URI, file.MIMEType),
		genai.NewPartFromText(g.TranscriptionPrompt),
	}
	resp, err := client.Models.GenerateContent(ctx, g.Model, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, nil)
	if err != nil {
		return "", fmt.Errorf("gemini transcription: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", errors.New("empty transcription from gemini")
	}
	return text, nil
}

// Summarize asks for a JSON briefing of the transcript.
func (g *Gemini) Summarize(ctx context.Context, transcript string) (*meeting.Briefing, error) {
	client, err := g.connect(ctx)
	if err != nil {
		return nil, err
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(g.BriefingPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
	}
	resp, err := client.Models.GenerateContent(ctx, g.Model, genai.Text("Here is the meeting transcript:\n\n"+transcript), cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini briefing: %w", err)
	}
	return ParseBriefing(resp.Text())
}
