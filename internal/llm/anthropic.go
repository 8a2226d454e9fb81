package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/anemonautas/meetingbot/internal/domain/meeting"
)

// Anthropic writes briefings with the Claude Messages API.
type Anthropic struct {
	APIKey       string
	SystemPrompt string
	BaseURL      string // defaults to https://api.anthropic.com
	Model        string // defaults to claude-haiku-4-5
	HTTP         *http.Client
}

func (a *Anthropic) Summarize(ctx context.Context, transcript string) (*meeting.Briefing, error) {
	if a.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key not set: set MEETINGBOT_ANTHROPIC_API_KEY or add anthropic_api_key to config")
	}

	model := a.Model
	if model == "" {
		model = "claude-haiku-4-5"
	}
	baseURL := a.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	httpClient := a.HTTP
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}

	reqBody := anthropicRequest{
		Model:     model,
		MaxTokens: 4096,
		System:    a.SystemPrompt,
		Messages: []anthropicMessage{
			{
				Role:    "user",
				Content: "Here is the meeting transcript to summarize:\n\n" + transcript,
			},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/messages", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling Anthropic API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("anthropic API error (HTTP %d): %s", resp.StatusCode, string(respBody))
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("parsing Anthropic response: %w", err)
	}

	var reply string
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			reply += block.Text
		}
	}
	return ParseBriefing(reply)
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}
