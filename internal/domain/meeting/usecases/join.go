package usecases

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anemonautas/meetingbot/internal/browser"
	"github.com/anemonautas/meetingbot/internal/domain/meeting"
)

// JoinMeeting drives a browser page from the meeting link to the call.
type JoinMeeting struct {
	Probes          browser.Probes
	DisplayName     string
	MaxWait         time.Duration
	PollInterval    time.Duration
	SettleInterval  time.Duration
	ContinueWait    time.Duration
	DOMReadyTimeout time.Duration
	Log             logrus.FieldLogger
}

// Execute returns the terminal join state, or the state reached so far when
// ctx is canceled. It never returns an error: navigation and probe failures
// are logged or ignored and end in JoinFailedTimeout when nothing works.
func (j *JoinMeeting) Execute(ctx context.Context, task *meeting.Task, page browser.Page) meeting.JoinState {
	log := j.Log.WithField("state", meeting.JoinOpening)

	log.Infof("opening %s", task.MeetingURL)
	if err := page.Navigate(ctx, task.MeetingURL); err != nil {
		log.Warnf("navigation: %v", err)
	}
	shoot(ctx, page, task, meeting.ShotOpening, log)
	if !browser.WaitReady(ctx, page, j.DOMReadyTimeout, j.PollInterval) {
		log.Warn("page not ready, probing anyway")
	}

	state := meeting.JoinPreJoin
	var nameFilled, audioSelected, joinClicked bool
	deadline := time.Now().Add(j.MaxWait)

	for time.Now().Before(deadline) && ctx.Err() == nil {
		if url, err := page.URL(ctx); err == nil && matchAny(url, j.Probes.LoginURLPatterns) {
			j.Log.Errorf("login wall at %s", url)
			shoot(ctx, page, task, meeting.ShotLoginWall, j.Log)
			return meeting.JoinFailedLoginWall
		}

		if j.Probes.ContinueInBrowser.Click(ctx, page) {
			j.Log.Info("continuing in browser")
			sleep(ctx, j.ContinueWait)
			continue
		}

		if j.Probes.NoAudio.Click(ctx, page) {
			j.Log.Debug("dismissed no-audio prompt")
		}
		if j.Probes.Dismiss.Click(ctx, page) {
			j.Log.Debug("dismissed prompt")
		}

		if !nameFilled && j.DisplayName != "" {
			if browser.FillInput(ctx, page, j.DisplayName, j.Probes.NameFields) {
				nameFilled = true
				j.Log.Infof("display name set to %q", j.DisplayName)
			}
		}

		if !audioSelected {
			audioSelected = j.selectComputerAudio(ctx, page)
		}

		if !joinClicked && j.Probes.Join.Click(ctx, page) {
			joinClicked = true
			state = meeting.JoinJoining
			j.Log.WithField("state", state).Info("join clicked")
			sleep(ctx, j.SettleInterval)
			shoot(ctx, page, task, meeting.ShotClickedJoin, j.Log)
		}

		if j.Probes.ControlsVisible(ctx, page) {
			j.Log.WithField("state", meeting.JoinInMeeting).Info("in meeting")
			shoot(ctx, page, task, meeting.ShotJoined, j.Log)
			return meeting.JoinInMeeting
		}

		sleep(ctx, j.PollInterval)
	}

	if ctx.Err() != nil {
		j.Log.WithField("state", state).Warn("join canceled")
		return state
	}

	j.Log.WithField("state", state).Errorf("not admitted after %s", j.MaxWait)
	shoot(ctx, page, task, meeting.ShotJoinTimeout, j.Log)
	return meeting.JoinFailedTimeout
}

func (j *JoinMeeting) selectComputerAudio(ctx context.Context, page browser.Page) bool {
	for _, p := range j.Probes.ComputerAudio {
		if p.Click(ctx, page) {
			j.Log.Info("computer audio selected")
			return true
		}
	}
	if browser.ClickByLabel(ctx, page, j.Probes.ComputerAudioLabels) {
		j.Log.Info("computer audio selected by label scan")
		return true
	}
	return false
}

func matchAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if p != "" && strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// shoot saves a diagnostic screenshot; failures only reach the debug log.
func shoot(ctx context.Context, page browser.Page, task *meeting.Task, name string, log logrus.FieldLogger) {
	if page == nil {
		return
	}
	if err := page.Screenshot(ctx, task.ScreenshotPath(name)); err != nil {
		log.Debugf("screenshot %s: %v", name, err)
	}
}
