package usecases

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anemonautas/meetingbot/internal/browser"
	"github.com/anemonautas/meetingbot/internal/domain/meeting"
	"github.com/anemonautas/meetingbot/internal/logging"
)

// RecordMeeting attends one meeting: join, capture, monitor, finalize.
type RecordMeeting struct {
	Browser  BrowserLauncher
	Join     *JoinMeeting
	Resolver SourceResolver
	Enforcer Enforcer
	Capture  CaptureSupervisor

	Compressor    Compressor
	Uploader      Uploader
	Transcription *TranscribeSegment
	Brief         *Brief // nil disables the briefing
	MaxWorkers    int

	Probes               browser.Probes
	PollInterval         time.Duration
	ControlsMissingLimit int
	DismissAttempts      int
	WorkerWaitTimeout    time.Duration
	EncoderStopGrace     time.Duration
	ProfileRetryDelay    time.Duration

	ExitOnFinish bool
	Exit         func(code int)
	Log          logrus.FieldLogger
}

// recording is the per-task runtime state shared by the loop and the
// finalizer.
type recording struct {
	task     *meeting.Task
	log      logrus.FieldLogger
	session  Browser
	encoders []Encoder
	primary  Encoder

	stopEnforcer context.CancelFunc
	enforcerDone chan struct{}

	tracker  *SegmentTracker
	pipeline *SegmentPipeline

	finalized sync.Once
}

// Execute runs the task to completion and always finalizes exactly once,
// including after a panic in the loop.
func (r *RecordMeeting) Execute(ctx context.Context, task *meeting.Task) (report *meeting.Report) {
	log := logging.ForTask(r.Log, task.ID)
	report = &meeting.Report{TaskID: task.ID, StartedAt: time.Now()}
	rec := &recording{
		task:    task,
		log:     log,
		tracker: NewSegmentTracker(task),
		pipeline: &SegmentPipeline{
			Compressor:    r.Compressor,
			Uploader:      r.Uploader,
			Transcription: r.Transcription,
			MaxWorkers:    r.MaxWorkers,
			Log:           log,
		},
	}

	defer rec.finalized.Do(func() { r.finalize(ctx, rec, report) })
	defer func() {
		if p := recover(); p != nil {
			log.Errorf("critical error: %v", p)
			report.ExitReason = meeting.ExitError
			report.Err = fmt.Errorf("recording loop panic: %v", p)
			if rec.session != nil {
				shoot(context.WithoutCancel(ctx), rec.session, task, meeting.ShotCriticalError, log)
			}
		}
	}()

	r.run(ctx, rec, report)
	return report
}

func (r *RecordMeeting) run(ctx context.Context, rec *recording, report *meeting.Report) {
	task, log := rec.task, rec.log

	session, err := r.Browser.Launch(ctx, task.ID)
	if err != nil {
		log.Errorf("launching browser: %v", err)
		report.ExitReason = meeting.ExitStartupFailed
		report.Err = err
		return
	}
	rec.session = session

	report.JoinState = r.Join.Execute(ctx, task, session)
	switch {
	case report.JoinState == meeting.JoinInMeeting:
	case !report.JoinState.Terminal():
		log.Warnf("canceled while joining (%s)", report.JoinState)
		report.ExitReason = meeting.ExitCanceled
		report.Err = ctx.Err()
		return
	default:
		report.ExitReason = meeting.ExitJoinFailed
		report.Err = fmt.Errorf("%w: %s", ErrJoinFailed, report.JoinState)
		return
	}

	for i := 0; i < r.DismissAttempts; i++ {
		r.Probes.Dismiss.Click(ctx, session)
	}

	if err := r.startCapture(ctx, rec); err != nil {
		log.Errorf("starting capture: %v", err)
		report.ExitReason = meeting.ExitStartupFailed
		report.Err = err
		return
	}

	report.ExitReason = r.monitor(ctx, rec)
	log.WithField("reason", report.ExitReason).Info("recording loop finished")
}

func (r *RecordMeeting) startCapture(ctx context.Context, rec *recording) error {
	task, log := rec.task, rec.log

	if task.RecordAudio {
		source := r.Resolver.Resolve(ctx)
		log.Infof("capturing audio from %s", source)

		if r.Enforcer != nil {
			ectx, cancel := context.WithCancel(context.WithoutCancel(ctx))
			done := make(chan struct{})
			go func() {
				defer close(done)
				r.Enforcer.Run(ectx)
			}()
			rec.stopEnforcer, rec.enforcerDone = cancel, done
		}

		enc, err := r.Capture.StartAudio(ctx, task, source)
		if err != nil {
			return err
		}
		rec.encoders = append(rec.encoders, enc)
		rec.primary = enc
	}

	if task.RecordVideo {
		enc, err := r.Capture.StartVideo(ctx, task)
		switch {
		case err != nil && rec.primary == nil:
			return err
		case err != nil:
			log.Warnf("continuing without video: %v", err)
		default:
			rec.encoders = append(rec.encoders, enc)
			if rec.primary == nil {
				rec.primary = enc
			}
		}
	}
	return nil
}

// monitor polls until the deadline or an exit condition. Neither the page
// checks nor the sleep run past the deadline.
func (r *RecordMeeting) monitor(ctx context.Context, rec *recording) meeting.ExitReason {
	task, log := rec.task, rec.log
	deadline := time.Now().Add(task.MaxDuration)
	missing := 0

	for {
		if ctx.Err() != nil {
			return meeting.ExitCanceled
		}
		if time.Until(deadline) <= 0 {
			log.Infof("max duration %s reached", task.MaxDuration)
			return meeting.ExitDuration
		}

		if rec.primary != nil && !rec.primary.Alive() {
			log.Errorf("%s encoder died", rec.primary.Name())
			return meeting.ExitEncoderDied
		}

		if task.RecordAudio {
			for _, idx := range rec.tracker.Ready() {
				log.WithField(logging.KeySegment, idx).Info("segment ready")
				rec.pipeline.Dispatch(ctx, task, idx)
			}
			if idx, ok := rec.tracker.Open(); ok {
				rec.pipeline.Observe(task, idx)
			}
		}

		if reason := r.checkPage(ctx, rec, deadline, &missing); reason != meeting.ExitNone {
			return reason
		}

		sleep(ctx, min(r.PollInterval, time.Until(deadline)))
	}
}

// checkPage runs one tick of page probes, cut off at the deadline. A probe
// interrupted by the deadline or a cancel decides nothing.
func (r *RecordMeeting) checkPage(ctx context.Context, rec *recording, deadline time.Time, missing *int) meeting.ExitReason {
	task, log, page := rec.task, rec.log, rec.session
	tctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	if phrase := browser.FindText(tctx, page, r.Probes.ExitPhrases); phrase != "" {
		log.Infof("meeting ended: %q", phrase)
		return meeting.ExitMeetingEnded
	}

	visible := r.Probes.ControlsVisible(tctx, page)
	if tctx.Err() != nil {
		return meeting.ExitNone
	}
	if visible {
		*missing = 0
		return meeting.ExitNone
	}

	*missing++
	log.Debugf("meeting controls missing (%d/%d)", *missing, r.ControlsMissingLimit)
	if *missing > r.ControlsMissingLimit {
		log.Warn("meeting controls gone, assuming we left")
		shoot(tctx, page, task, meeting.ShotControlsLost, log)
		return meeting.ExitControlsLost
	}
	return meeting.ExitNone
}

// finalize stops everything, salvages segments and writes the briefing.
func (r *RecordMeeting) finalize(ctx context.Context, rec *recording, report *meeting.Report) {
	ctx = context.WithoutCancel(ctx)
	task, log := rec.task, rec.log

	defer func() {
		if p := recover(); p != nil {
			log.Errorf("finalizer panic: %v", p)
		}
		report.Segments = rec.pipeline.Segments()
		report.FinishedAt = time.Now()
		log.WithFields(logrus.Fields{
			"reason":   report.ExitReason,
			"segments": len(report.Segments),
		}).Infof("task finished in %s", report.FinishedAt.Sub(report.StartedAt).Round(time.Second))

		if r.ExitOnFinish && r.Exit != nil {
			r.Exit(0)
		}
	}()

	if rec.stopEnforcer != nil {
		rec.stopEnforcer()
		<-rec.enforcerDone
	}

	for _, enc := range rec.encoders {
		if err := enc.Stop(r.EncoderStopGrace); err != nil {
			log.Errorf("stopping %s encoder: %v", enc.Name(), err)
		}
	}

	if rec.session != nil {
		if err := rec.session.Close(); err != nil {
			log.Warnf("closing browser: %v", err)
		}
		r.removeProfile(rec.session.ProfileDir(), log)
	}

	drained := rec.pipeline.Wait(r.WorkerWaitTimeout)
	if !drained {
		report.Abandoned = rec.pipeline.Pending()
		log.WithField("segments", report.Abandoned).
			Warnf("segment workers still running after %s, abandoning them", r.WorkerWaitTimeout)
	}

	if task.RecordAudio {
		for _, idx := range rec.tracker.Remaining() {
			log.WithField(logging.KeySegment, idx).Info("processing trailing segment")
			_ = rec.pipeline.Process(ctx, task, idx)
		}
	}

	if exists(task.VideoPath()) {
		if err := r.Uploader.Upload(ctx, task.ID, task.VideoPath(), "video.mp4"); err != nil {
			log.Errorf("uploading video: %v", err)
		}
	}

	switch {
	case r.Brief == nil || report.JoinState != meeting.JoinInMeeting:
	case !drained:
		log.Warn("skipping briefing: transcripts of abandoned segments are incomplete")
	default:
		if _, err := r.Brief.Execute(ctx, task); err != nil {
			log.Errorf("briefing: %v", err)
		}
	}
}

func (r *RecordMeeting) removeProfile(dir string, log logrus.FieldLogger) {
	if dir == "" {
		return
	}
	err := os.RemoveAll(dir)
	if err == nil {
		return
	}
	time.Sleep(r.ProfileRetryDelay)
	if err := os.RemoveAll(dir); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("removing browser profile %s: %v", dir, err)
	}
}
