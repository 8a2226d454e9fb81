package usecases

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anemonautas/meetingbot/internal/domain/meeting"
	"github.com/anemonautas/meetingbot/internal/logging"
)

// StartTask accepts a meeting and records it in the background.
type StartTask struct {
	Record                *RecordMeeting
	OutputDir             string
	DefaultDuration       time.Duration
	DefaultSegmentSeconds int
	Log                   logrus.FieldLogger

	// Lifetime bounds every task started here; nil means background.
	// The ctx passed to Execute only scopes the start request itself.
	Lifetime context.Context
}

// StartOptions holds options for starting a task.
type StartOptions struct {
	MeetingURL     string
	Duration       time.Duration // 0 means the configured default
	RecordAudio    *bool         // nil means true
	RecordVideo    *bool         // nil means false
	TaskID         string        // generated when empty
	SegmentSeconds int           // 0 means the configured default
}

// Execute validates opts, prepares the task directory and starts
// recording. It returns as soon as the task is running; the channel
// receives the final report once.
func (s *StartTask) Execute(ctx context.Context, opts *StartOptions) (*meeting.Acceptance, <-chan *meeting.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	task, err := s.newTask(opts)
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(task.Dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating task directory: %w", err)
	}

	lifetime := s.Lifetime
	if lifetime == nil {
		lifetime = context.Background()
	}

	reports := make(chan *meeting.Report, 1)
	go func() {
		defer close(reports)
		reports <- s.Record.Execute(lifetime, task)
	}()

	s.Log.WithFields(logrus.Fields{
		logging.KeyTaskID: task.ID,
		"duration":        task.MaxDuration,
		"audio":           task.RecordAudio,
		"video":           task.RecordVideo,
	}).Infof("task started for %s", task.MeetingURL)

	return &meeting.Acceptance{Status: "started", TaskID: task.ID}, reports, nil
}

func (s *StartTask) newTask(opts *StartOptions) (*meeting.Task, error) {
	u, err := url.Parse(opts.MeetingURL)
	if opts.MeetingURL == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMeetingURL, opts.MeetingURL)
	}

	id := opts.TaskID
	if id == "" {
		id = meeting.NewTaskID(time.Now())
	}
	if id != filepath.Base(id) || id == "." || id == ".." {
		return nil, fmt.Errorf("invalid task id %q", id)
	}

	duration := opts.Duration
	if duration <= 0 {
		duration = s.DefaultDuration
	}
	segment := opts.SegmentSeconds
	if segment <= 0 {
		segment = s.DefaultSegmentSeconds
	}

	return &meeting.Task{
		ID:             id,
		MeetingURL:     opts.MeetingURL,
		MaxDuration:    duration,
		RecordAudio:    boolOr(opts.RecordAudio, true),
		RecordVideo:    boolOr(opts.RecordVideo, false),
		SegmentSeconds: segment,
		Dir:            filepath.Join(s.OutputDir, id),
	}, nil
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
