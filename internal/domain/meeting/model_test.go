package meeting

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTaskPaths(t *testing.T) {
	task := &Task{ID: "abc", Dir: "/out/abc"}

	assert.Equal(t, "/out/abc/audio_%03d.wav", task.SegmentPattern())
	assert.Equal(t, "/out/abc/audio_007.wav", task.SegmentPath(7))
	assert.Equal(t, "/out/abc/audio_012.mp3", task.CompressedPath(12))
	assert.Equal(t, "/out/abc/transcriptions/abc_3.json", task.TranscriptPath(3, "json"))
	assert.Equal(t, "/out/abc/OPENING.png", task.ScreenshotPath(ShotOpening))
	assert.Equal(t, "/out/abc/recording.mp4", task.VideoPath())
}

func TestParseSegmentIndex(t *testing.T) {
	tests := []struct {
		name string
		want int
		ok   bool
	}{
		{"audio_000.wav", 0, true},
		{"/x/y/audio_042.wav", 42, true},
		{"audio_1000.wav", 1000, true},
		{"audio_000.mp3", 0, false},
		{"audio_abc.wav", 0, false},
		{"video_001.wav", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseSegmentIndex(tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}

func TestParseTranscriptIndex(t *testing.T) {
	idx, ok := ParseTranscriptIndex("task_1", "task_1_4.txt")
	assert.True(t, ok)
	assert.Equal(t, 4, idx)

	idx, ok = ParseTranscriptIndex("task_1", "/a/task_1_12.json")
	assert.True(t, ok)
	assert.Equal(t, 12, idx)

	_, ok = ParseTranscriptIndex("task_1", "other_4.txt")
	assert.False(t, ok)
	_, ok = ParseTranscriptIndex("task_1", "task_1_4.md")
	assert.False(t, ok)
}

func TestNewTaskID(t *testing.T) {
	now := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	id := NewTaskID(now)
	assert.Regexp(t, regexp.MustCompile(`^2025-03-04_05-06-07_[0-9a-f]{8}$`), id)
	assert.NotEqual(t, id, NewTaskID(now))
}

func TestJoinStateTerminal(t *testing.T) {
	assert.True(t, JoinInMeeting.Terminal())
	assert.True(t, JoinFailedLoginWall.Terminal())
	assert.True(t, JoinFailedTimeout.Terminal())
	assert.False(t, JoinPreJoin.Terminal())
	assert.False(t, JoinJoining.Terminal())
}
