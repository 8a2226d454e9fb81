package usecases

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anemonautas/meetingbot/internal/domain/meeting"
	"github.com/anemonautas/meetingbot/internal/logging"
)

func writeTranscript(t *testing.T, task *meeting.Task, idx int, ext, text string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(task.TranscriptionsDir(), 0o755))
	require.NoError(t, os.WriteFile(task.TranscriptPath(idx, ext), []byte(text), 0o644))
}

func TestTranscribeSegmentPersistsJSON(t *testing.T) {
	task := testTask(t)
	up := &recordingUploader{}
	ts := &TranscribeSegment{
		Transcriber: echoTranscriber{reply: `{"segments": []}`},
		Uploader:    up,
		Log:         logging.Discard(),
	}

	rec, err := ts.Execute(context.Background(), task, 4, "audio_004.mp3")
	require.NoError(t, err)
	assert.True(t, rec.Structured)
	assert.Equal(t, task.TranscriptPath(4, "json"), rec.Path)
	assert.FileExists(t, rec.Path)
	assert.Equal(t, []string{"transcriptions/" + task.ID + "_4.json"}, up.uploaded())
}

func TestTranscribeSegmentWithoutService(t *testing.T) {
	task := testTask(t)
	ts := &TranscribeSegment{Uploader: &recordingUploader{}, Log: logging.Discard()}

	rec, err := ts.Execute(context.Background(), task, 0, "audio_000.mp3")
	assert.NoError(t, err)
	assert.Nil(t, rec)
	assert.NoDirExists(t, task.TranscriptionsDir())
}

func TestReadTranscriptsOrdersByIndex(t *testing.T) {
	task := testTask(t)
	writeTranscript(t, task, 10, "txt", "ten")
	writeTranscript(t, task, 2, "json", `{"n": 2}`)
	writeTranscript(t, task, 0, "txt", "zero\n")
	require.NoError(t, os.WriteFile(task.TranscriptionsDir()+"/other_1.txt", []byte("x"), 0o644))

	text, n, err := ReadTranscripts(task)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "zero\n\n{\"n\": 2}\n\nten", text)
}

func TestBriefWritesAndMails(t *testing.T) {
	task := testTask(t)
	writeTranscript(t, task, 1, "txt", "B: bye")
	writeTranscript(t, task, 0, "txt", "A: hi")

	sum := &stubSummarizer{}
	mail := &stubNotifier{}
	up := &recordingUploader{}
	b := &Brief{Summarizer: sum, Notifier: mail, Uploader: up, Log: logging.Discard()}

	briefing, err := b.Execute(context.Background(), task)
	require.NoError(t, err)
	assert.Equal(t, "Weekly sync", briefing.Subject)
	assert.Equal(t, "A: hi\n\nB: bye", sum.input)
	require.Len(t, mail.sent, 1)
	assert.Equal(t, []string{"briefing.json"}, up.uploaded())

	data, err := os.ReadFile(task.BriefingPath())
	require.NoError(t, err)
	var onDisk meeting.Briefing
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, *briefing, onDisk)
}

func TestBriefSkipsWithoutTranscripts(t *testing.T) {
	sum := &stubSummarizer{}
	b := &Brief{Summarizer: sum, Uploader: &recordingUploader{}, Log: logging.Discard()}

	briefing, err := b.Execute(context.Background(), testTask(t))
	assert.NoError(t, err)
	assert.Nil(t, briefing)
	assert.Zero(t, sum.calls)
}
