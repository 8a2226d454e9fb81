package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/anemonautas/meetingbot/internal/domain/meeting"
	"github.com/anemonautas/meetingbot/internal/logging"
)

// TranscribeSegment transcribes one compressed segment, stores the result
// under transcriptions/ and mirrors it to remote storage.
type TranscribeSegment struct {
	Transcriber Transcriber // nil disables transcription
	Uploader    Uploader
	Log         logrus.FieldLogger
}

// Execute returns a nil record when no transcriber is configured.
func (t *TranscribeSegment) Execute(ctx context.Context, task *meeting.Task, index int, audioPath string) (*meeting.TranscriptRecord, error) {
	log := t.Log.WithField(logging.KeySegment, index)
	if t.Transcriber == nil {
		log.Error("no transcription service configured, skipping")
		return nil, nil
	}

	text, err := t.Transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return nil, err
	}

	rec := &meeting.TranscriptRecord{
		TaskID:       task.ID,
		SegmentIndex: index,
		Text:         text,
		Structured:   json.Valid([]byte(strings.TrimSpace(text))),
	}
	ext := "txt"
	if rec.Structured {
		ext = "json"
	}
	rec.Path = task.TranscriptPath(index, ext)

	if err := os.MkdirAll(task.TranscriptionsDir(), 0o755); err != nil {
		return nil, fmt.Errorf("creating transcriptions directory: %w", err)
	}
	if err := os.WriteFile(rec.Path, []byte(text), 0o644); err != nil {
		return nil, fmt.Errorf("writing transcript: %w", err)
	}
	log.Infof("transcript saved to %s", rec.Path)

	remote := "transcriptions/" + filepath.Base(rec.Path)
	if err := t.Uploader.Upload(ctx, task.ID, rec.Path, remote); err != nil {
		return rec, fmt.Errorf("mirroring transcript: %w", err)
	}
	return rec, nil
}
