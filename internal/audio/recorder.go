package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anemonautas/meetingbot/internal/domain/meeting"
)

// ErrEncoderStartup is returned when an encoder exits within its startup grace.
var ErrEncoderStartup = errors.New("encoder exited during startup")

// Recorder launches ffmpeg capture processes for a task.
type Recorder struct {
	FFmpeg       string
	Display      string // X display for video capture
	VideoSize    string
	Framerate    int
	StartupGrace time.Duration
	Log          logrus.FieldLogger
}

func (r *Recorder) CheckFFmpeg() error {
	if _, err := exec.LookPath(r.FFmpeg); err != nil {
		return fmt.Errorf("ffmpeg not found. Install with: apt-get install ffmpeg")
	}
	return nil
}

// AudioArgs captures the pulse source as 48 kHz PCM, rotating into
// fixed-duration files named by zero-padded index.
func (r *Recorder) AudioArgs(source, pattern string, segmentSeconds int) []string {
	return []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "pulse",
		"-ac", "2",
		"-thread_queue_size", "1024",
		"-i", source,
		"-acodec", "pcm_s16le",
		"-ar", "48000",
		"-f", "segment",
		"-segment_time", strconv.Itoa(segmentSeconds),
		"-reset_timestamps", "1",
		pattern,
	}
}

// VideoArgs grabs the X display into a single continuous H.264 file.
func (r *Recorder) VideoArgs(output string) []string {
	return []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "x11grab",
		"-video_size", r.VideoSize,
		"-framerate", strconv.Itoa(r.Framerate),
		"-thread_queue_size", "1024",
		"-i", r.Display,
		"-an",
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-pix_fmt", "yuv420p",
		output,
	}
}

// StartAudio starts segmented audio capture into the task directory.
func (r *Recorder) StartAudio(_ context.Context, task *meeting.Task, source string) (*Encoder, error) {
	return StartEncoder("audio", r.FFmpeg, r.AudioArgs(source, task.SegmentPattern(), task.SegmentSeconds), task.AudioLogPath(), r.StartupGrace)
}

// StartVideo starts screen capture into the task's recording.mp4.
func (r *Recorder) StartVideo(_ context.Context, task *meeting.Task) (*Encoder, error) {
	return StartEncoder("video", r.FFmpeg, r.VideoArgs(task.VideoPath()), task.VideoLogPath(), r.StartupGrace)
}

// Encoder is a running capture subprocess.
type Encoder struct {
	name string
	cmd  *exec.Cmd
	done chan struct{}

	mu  sync.Mutex
	err error
}

// StartEncoder launches bin with args, sending its output to logPath.
// The process is detached from any context; stop it with Stop.
func StartEncoder(name, bin string, args []string, logPath string, grace time.Duration) (*Encoder, error) {
	cmd := exec.Command(bin, args...)

	// Log stdout/stderr for diagnostics
	logFile, err := os.Create(logPath)
	if err == nil {
		cmd.Stdout = logFile
		cmd.Stderr = logFile
	}

	if err := cmd.Start(); err != nil {
		if logFile != nil {
			logFile.Close()
		}
		return nil, fmt.Errorf("starting %s encoder: %w", name, err)
	}

	e := &Encoder{name: name, cmd: cmd, done: make(chan struct{})}
	go func() {
		werr := cmd.Wait()
		if logFile != nil {
			logFile.Close()
		}
		e.mu.Lock()
		e.err = werr
		e.mu.Unlock()
		close(e.done)
	}()

	select {
	case <-e.done:
		return nil, fmt.Errorf("%w: %s (%v), see %s", ErrEncoderStartup, name, e.ExitErr(), logPath)
	case <-time.After(grace):
	}
	return e, nil
}

func (e *Encoder) Name() string { return e.name }

func (e *Encoder) Pid() int { return e.cmd.Process.Pid }

// Alive reports whether the process has not exited yet.
func (e *Encoder) Alive() bool {
	select {
	case <-e.done:
		return false
	default:
		return true
	}
}

// ExitErr is the wait error once the process has exited.
func (e *Encoder) ExitErr() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Stop sends SIGTERM, waits up to grace, then SIGKILLs and waits briefly.
func (e *Encoder) Stop(grace time.Duration) error {
	if !e.Alive() {
		return nil
	}

	_ = e.cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-e.done:
		return nil
	case <-time.After(grace):
	}

	if err := e.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		// one retry, then give up
		if err := e.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("killing %s encoder: %w", e.name, err)
		}
	}

	select {
	case <-e.done:
		return nil
	case <-time.After(2 * time.Second):
		return fmt.Errorf("%s encoder pid %d did not exit after SIGKILL", e.name, e.Pid())
	}
}
