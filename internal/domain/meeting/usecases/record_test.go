package usecases

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anemonautas/meetingbot/internal/browser"
	"github.com/anemonautas/meetingbot/internal/domain/meeting"
	"github.com/anemonautas/meetingbot/internal/logging"
)

type recordFixture struct {
	page     *fakePage
	capture  *fakeCapture
	enforcer *fakeEnforcer
	uploader *recordingUploader
	summary  *stubSummarizer

	mu    sync.Mutex
	exits []int
}

func newRecordFixture(t *testing.T, page *fakePage) (*recordFixture, *RecordMeeting) {
	t.Helper()
	page.profile = filepath.Join(t.TempDir(), "profile_x")
	require.NoError(t, os.MkdirAll(page.profile, 0o755))

	f := &recordFixture{
		page:     page,
		capture:  &fakeCapture{segmentEvery: time.Hour},
		enforcer: &fakeEnforcer{},
		uploader: &recordingUploader{},
		summary:  &stubSummarizer{},
	}
	log := logging.Discard()
	r := &RecordMeeting{
		Browser:    &fakeLauncher{page: page},
		Join:       newJoin(time.Second),
		Resolver:   fakeResolver{},
		Enforcer:   f.enforcer,
		Capture:    f.capture,
		Compressor: &copyCompressor{},
		Uploader:   f.uploader,
		Transcription: &TranscribeSegment{
			Transcriber: echoTranscriber{},
			Uploader:    f.uploader,
			Log:         log,
		},
		Brief:                &Brief{Summarizer: f.summary, Uploader: f.uploader, Log: log},
		MaxWorkers:           2,
		Probes:               testProbes(),
		PollInterval:         5 * time.Millisecond,
		ControlsMissingLimit: 3,
		DismissAttempts:      3,
		WorkerWaitTimeout:    time.Second,
		EncoderStopGrace:     10 * time.Millisecond,
		ExitOnFinish:         true,
		Exit: func(code int) {
			f.mu.Lock()
			f.exits = append(f.exits, code)
			f.mu.Unlock()
		},
		Log: log,
	}
	return f, r
}

func (f *recordFixture) assertCleanedUp(t *testing.T) {
	t.Helper()
	assert.Equal(t, 1, f.page.closed)
	assert.NoDirExists(t, f.page.profile)
	assert.Equal(t, []int{0}, f.exits)
}

func segmentStates(segs []meeting.Segment) []meeting.SegmentState {
	out := make([]meeting.SegmentState, len(segs))
	for i, s := range segs {
		out[i] = s.State
	}
	return out
}

func TestRecordThreeSegmentsUntilDuration(t *testing.T) {
	f, r := newRecordFixture(t, joinable())
	f.capture.segmentEvery = 100 * time.Millisecond
	task := testTask(t)
	task.MaxDuration = 210 * time.Millisecond

	report := r.Execute(context.Background(), task)

	assert.Equal(t, meeting.ExitDuration, report.ExitReason)
	assert.Equal(t, meeting.JoinInMeeting, report.JoinState)
	require.Len(t, report.Segments, 3)
	for i, s := range report.Segments {
		assert.Equal(t, i, s.Index)
	}
	assert.Equal(t, []meeting.SegmentState{meeting.SegmentDone, meeting.SegmentDone, meeting.SegmentDone}, segmentStates(report.Segments))
	assert.Equal(t, 1, f.capture.audio.stopCount())
	assert.True(t, f.enforcer.stopped)
	assert.Equal(t, 1, f.summary.calls)
	assert.Contains(t, f.uploader.uploaded(), "briefing.json")
	assert.Zero(t, f.page.count("DISMISS"))
	f.assertCleanedUp(t)
}

func TestRecordStopsWhenMeetingEnds(t *testing.T) {
	f, r := newRecordFixture(t, joinable())
	task := testTask(t)
	task.MaxDuration = 10 * time.Second

	time.AfterFunc(50*time.Millisecond, func() {
		f.page.set(func(p *fakePage) { p.text = "The meeting ended. Thanks!" })
	})

	start := time.Now()
	report := r.Execute(context.Background(), task)

	assert.Equal(t, meeting.ExitMeetingEnded, report.ExitReason)
	assert.Less(t, time.Since(start), 2*time.Second)
	require.Len(t, report.Segments, 1)
	assert.Equal(t, meeting.SegmentDone, report.Segments[0].State)
	assert.FileExists(t, task.TranscriptPath(0, "txt"))
	f.assertCleanedUp(t)
}

func TestRecordLoginWallProducesNoSegments(t *testing.T) {
	page := joinable()
	page.url = "https://login.microsoftonline.com/"
	f, r := newRecordFixture(t, page)

	report := r.Execute(context.Background(), testTask(t))

	assert.Equal(t, meeting.ExitJoinFailed, report.ExitReason)
	assert.Equal(t, meeting.JoinFailedLoginWall, report.JoinState)
	assert.ErrorIs(t, report.Err, ErrJoinFailed)
	assert.Empty(t, report.Segments)
	assert.Nil(t, f.capture.audio)
	assert.Contains(t, page.screenshots(), meeting.ShotLoginWall)
	assert.Zero(t, f.summary.calls)
	f.assertCleanedUp(t)
}

func TestRecordFinalizesOnceAfterPanic(t *testing.T) {
	page := joinable()
	f, r := newRecordFixture(t, page)
	task := testTask(t)

	// only the monitor loop probes for meeting-ended text
	page.panicOn = browser.TextPresenceJS

	report := r.Execute(context.Background(), task)

	assert.Equal(t, meeting.ExitError, report.ExitReason)
	assert.Error(t, report.Err)
	assert.Contains(t, page.screenshots(), meeting.ShotCriticalError)
	assert.Equal(t, 1, f.capture.audio.stopCount())
	require.Len(t, report.Segments, 1, "open segment is salvaged")
	f.assertCleanedUp(t)
}

func TestRecordEncoderDeath(t *testing.T) {
	f, r := newRecordFixture(t, joinable())
	task := testTask(t)
	task.MaxDuration = 10 * time.Second

	go func() {
		for f.capture.audioEncoder() == nil {
			time.Sleep(time.Millisecond)
		}
		time.Sleep(20 * time.Millisecond)
		f.capture.audioEncoder().die()
	}()

	report := r.Execute(context.Background(), task)

	assert.Equal(t, meeting.ExitEncoderDied, report.ExitReason)
	require.Len(t, report.Segments, 1)
	f.assertCleanedUp(t)
}

func TestRecordControlsLost(t *testing.T) {
	page := joinable()
	f, r := newRecordFixture(t, page)
	task := testTask(t)
	task.MaxDuration = 10 * time.Second

	time.AfterFunc(30*time.Millisecond, func() {
		page.set(func(p *fakePage) { delete(p.visible, "LEAVE") })
	})

	report := r.Execute(context.Background(), task)

	assert.Equal(t, meeting.ExitControlsLost, report.ExitReason)
	assert.Contains(t, page.screenshots(), meeting.ShotControlsLost)
	f.assertCleanedUp(t)
}

func TestRecordAudioStartupFailure(t *testing.T) {
	f, r := newRecordFixture(t, joinable())
	f.capture.audioErr = errors.New("encoder startup failed")

	report := r.Execute(context.Background(), testTask(t))

	assert.Equal(t, meeting.ExitStartupFailed, report.ExitReason)
	assert.True(t, f.enforcer.stopped)
	assert.Empty(t, report.Segments)
	f.assertCleanedUp(t)
}

func TestRecordToleratesOptionalVideoFailure(t *testing.T) {
	f, r := newRecordFixture(t, joinable())
	f.capture.videoErr = errors.New("no display")
	task := testTask(t)
	task.RecordVideo = true
	task.MaxDuration = 30 * time.Millisecond

	report := r.Execute(context.Background(), task)

	assert.Equal(t, meeting.ExitDuration, report.ExitReason)
	assert.NotContains(t, f.uploader.uploaded(), "video.mp4")
}

func TestRecordUploadsVideo(t *testing.T) {
	f, r := newRecordFixture(t, joinable())
	task := testTask(t)
	task.RecordAudio = false
	task.RecordVideo = true
	task.MaxDuration = 30 * time.Millisecond

	report := r.Execute(context.Background(), task)

	assert.Equal(t, meeting.ExitDuration, report.ExitReason)
	assert.Empty(t, report.Segments)
	assert.False(t, f.enforcer.started)
	assert.Equal(t, 1, f.capture.video.stopCount())
	assert.Contains(t, f.uploader.uploaded(), "video.mp4")
}

func TestRecordCanceled(t *testing.T) {
	f, r := newRecordFixture(t, joinable())
	task := testTask(t)
	task.MaxDuration = 10 * time.Second

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)

	report := r.Execute(ctx, task)

	assert.Equal(t, meeting.ExitCanceled, report.ExitReason)
	require.Len(t, report.Segments, 1)
	assert.Equal(t, meeting.SegmentDone, report.Segments[0].State)
	f.assertCleanedUp(t)
}

func TestRecordSkipsBriefingWhenWorkersOutlastWait(t *testing.T) {
	f, r := newRecordFixture(t, joinable())
	release := make(chan struct{})
	r.Compressor = &copyCompressor{block: release, hold: "audio_000.wav"}
	r.WorkerWaitTimeout = 20 * time.Millisecond
	f.capture.segmentEvery = 30 * time.Millisecond
	task := testTask(t)
	task.MaxDuration = 80 * time.Millisecond

	report := r.Execute(context.Background(), task)

	assert.Equal(t, meeting.ExitDuration, report.ExitReason)
	assert.Contains(t, report.Abandoned, 0)
	require.NotEmpty(t, report.Segments)
	assert.Equal(t, meeting.SegmentProcessing, report.Segments[0].State)
	assert.Zero(t, f.summary.calls)
	assert.NotContains(t, f.uploader.uploaded(), "briefing.json")
	assert.NoFileExists(t, task.BriefingPath())
	f.assertCleanedUp(t)

	close(release)
	assert.Eventually(t, func() bool {
		_, err := os.Stat(task.TranscriptPath(0, "txt"))
		return err == nil
	}, time.Second, 5*time.Millisecond)
}

func TestRecordPageChecksStopAtDeadline(t *testing.T) {
	f, r := newRecordFixture(t, joinable())
	r.Browser = &fakeLauncher{page: &slowPage{
		fakePage: f.page,
		delay:    400 * time.Millisecond,
		slow:     func() bool { return f.capture.audioEncoder() != nil },
	}}
	task := testTask(t)
	task.MaxDuration = 50 * time.Millisecond

	start := time.Now()
	report := r.Execute(context.Background(), task)

	assert.Equal(t, meeting.ExitDuration, report.ExitReason)
	assert.Less(t, time.Since(start), 300*time.Millisecond, "one page call outlasts the whole duration")
	assert.NotContains(t, f.page.screenshots(), meeting.ShotControlsLost)
	f.assertCleanedUp(t)
}

func TestRecordCanceledWhileJoining(t *testing.T) {
	page := newFakePage()
	f, r := newRecordFixture(t, page)
	r.Join = newJoin(10 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	report := r.Execute(ctx, testTask(t))

	assert.Equal(t, meeting.ExitCanceled, report.ExitReason)
	assert.False(t, report.JoinState.Terminal())
	assert.ErrorIs(t, report.Err, context.Canceled)
	assert.NotContains(t, page.screenshots(), meeting.ShotJoinTimeout)
	assert.Nil(t, f.capture.audio)
	assert.Zero(t, f.summary.calls)
	f.assertCleanedUp(t)
}
