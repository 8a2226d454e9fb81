package usecases

import (
	"context"
	"errors"
	"time"

	"github.com/anemonautas/meetingbot/internal/browser"
	"github.com/anemonautas/meetingbot/internal/domain/meeting"
)

var (
	// ErrInvalidMeetingURL is returned by StartTask for a missing or
	// non-http(s) meeting URL.
	ErrInvalidMeetingURL = errors.New("invalid meeting url")
	// ErrJoinFailed wraps the terminal join state of a failed attempt.
	ErrJoinFailed = errors.New("join failed")
)

// Browser is a launched browser session.
type Browser interface {
	browser.Page
	ProfileDir() string
}

// BrowserLauncher opens a fresh browser session for a task.
type BrowserLauncher interface {
	Launch(ctx context.Context, taskID string) (Browser, error)
}

// SourceResolver picks the audio capture endpoint.
type SourceResolver interface {
	Resolve(ctx context.Context) string
}

// Enforcer runs until ctx is cancelled.
type Enforcer interface {
	Run(ctx context.Context)
}

// Encoder is a running capture process.
type Encoder interface {
	Name() string
	Alive() bool
	Stop(grace time.Duration) error
}

// CaptureSupervisor starts the capture processes for a task.
type CaptureSupervisor interface {
	StartAudio(ctx context.Context, task *meeting.Task, source string) (Encoder, error)
	StartVideo(ctx context.Context, task *meeting.Task) (Encoder, error)
}

type Compressor interface {
	Compress(ctx context.Context, inputPath, outputPath string) error
}

// Uploader mirrors a local file to remote storage under the task's prefix.
type Uploader interface {
	Upload(ctx context.Context, taskID, localPath, remoteName string) error
}

type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (*meeting.Briefing, error)
}

type Notifier interface {
	Send(ctx context.Context, b *meeting.Briefing) error
}

// sleep waits d or until ctx is done; it reports whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
