package output

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/anemonautas/meetingbot/internal/domain/meeting"
)

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "45s", formatDuration(45*time.Second))
	assert.Equal(t, "10m20s", formatDuration(10*time.Minute+20*time.Second))
	assert.Equal(t, "1h02m03s", formatDuration(time.Hour+2*time.Minute+3*time.Second))
}

func TestTaskFinished(t *testing.T) {
	var buf bytes.Buffer
	start := time.Date(2025, 1, 31, 14, 0, 0, 0, time.UTC)

	NewFormatter(&buf).TaskFinished(&meeting.Report{
		TaskID:     "t1",
		ExitReason: meeting.ExitMeetingEnded,
		StartedAt:  start,
		FinishedAt: start.Add(10*time.Minute + 20*time.Second),
		Segments: []meeting.Segment{
			{Index: 0, State: meeting.SegmentDone},
			{Index: 1, State: meeting.SegmentFailed},
			{Index: 2, State: meeting.SegmentDone},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "Task t1 finished (10m20s): meeting-ended")
	assert.Contains(t, out, "2 done, 1 failed")
	assert.NotContains(t, out, "briefing skipped")

	buf.Reset()
	NewFormatter(&buf).TaskFinished(&meeting.Report{
		TaskID:     "t1",
		ExitReason: meeting.ExitDuration,
		Segments:   []meeting.Segment{{Index: 0, State: meeting.SegmentProcessing}},
		Abandoned:  []int{0},
	})
	assert.Contains(t, buf.String(), "Segments [0] still processing, briefing skipped")
}

func TestTaskFinishedJoinFailure(t *testing.T) {
	var buf bytes.Buffer
	NewFormatter(&buf).TaskFinished(&meeting.Report{
		TaskID:     "t2",
		JoinState:  meeting.JoinFailedLoginWall,
		ExitReason: meeting.ExitJoinFailed,
		Err:        errors.New("join failed: failed(login-wall)"),
	})

	out := buf.String()
	assert.Contains(t, out, "could not join (failed(login-wall))")
	assert.NotContains(t, out, "Segments")
	assert.Contains(t, out, "join failed")
}
