package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Mistral handles audio transcription via the Mistral Voxtral API.
type Mistral struct {
	APIKey  string
	BaseURL string // defaults to https://api.mistral.ai
	Model   string // defaults to voxtral-mini-latest
	HTTP    *http.Client
}

// TranscriptSegment is a diarized piece of the transcript.
type TranscriptSegment struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// TranscriptResult holds the full transcription result.
type TranscriptResult struct {
	Text     string              `json:"text"`
	Segments []TranscriptSegment `json:"segments"`
}

func (m *Mistral) client() *http.Client {
	if m.HTTP != nil {
		return m.HTTP
	}
	return &http.Client{Timeout: 5 * time.Minute}
}

// Transcribe sends the file with diarization enabled and returns
// speaker-labeled text.
func (m *Mistral) Transcribe(ctx context.Context, audioPath string) (string, error) {
	result, err := m.transcribe(ctx, audioPath)
	if err != nil {
		return "", err
	}
	return FormatTranscript(result), nil
}

func (m *Mistral) transcribe(ctx context.Context, audioPath string) (*TranscriptResult, error) {
	if m.APIKey == "" {
		return nil, fmt.Errorf("mistral API key not set: set MEETINGBOT_MISTRAL_API_KEY or add mistral_api_key to config")
	}

	model := m.Model
	if model == "" {
		model = "voxtral-mini-latest"
	}
	baseURL := m.BaseURL
	if baseURL == "" {
		baseURL = "https://api.mistral.ai"
	}

	// Build multipart request
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("model", model); err != nil {
		return nil, err
	}
	if err := writer.WriteField("diarize", "true"); err != nil {
		return nil, err
	}

	file, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("opening audio file: %w", err)
	}
	defer file.Close()

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/audio/transcriptions", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+m.APIKey)

	resp, err := m.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling Mistral API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mistral API error (HTTP %d): %s", resp.StatusCode, string(respBody))
	}

	var apiResp TranscriptResult
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("parsing Mistral response: %w", err)
	}
	return &apiResp, nil
}

// FormatTranscript groups consecutive segments under a speaker heading.
func FormatTranscript(result *TranscriptResult) string {
	if len(result.Segments) == 0 {
		return strings.TrimSpace(result.Text) + "\n"
	}

	var sb strings.Builder
	currentSpeaker := ""
	for i, seg := range result.Segments {
		if i == 0 || seg.Speaker != currentSpeaker {
			currentSpeaker = seg.Speaker
			speaker := currentSpeaker
			if speaker == "" {
				speaker = "Unknown"
			}
			if i > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(speaker + ":")
		}
		sb.WriteString(" " + strings.TrimSpace(seg.Text))
	}
	sb.WriteString("\n")
	return sb.String()
}
