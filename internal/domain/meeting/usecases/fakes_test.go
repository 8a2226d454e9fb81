package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/anemonautas/meetingbot/internal/browser"
	"github.com/anemonautas/meetingbot/internal/domain/meeting"
)

func testProbes() browser.Probes {
	btn := []string{"button"}
	probe := func(label string) browser.Probe {
		return browser.Probe{Name: strings.ToLower(label), Tags: btn, Labels: []string{label}}
	}
	return browser.Probes{
		ContinueInBrowser:   probe("CONTINUE"),
		NoAudio:             probe("NOAUDIO"),
		Dismiss:             probe("DISMISS"),
		Join:                probe("JOIN"),
		ComputerAudio:       []browser.Probe{probe("COMPUTER")},
		ComputerAudioLabels: []string{"computer"},
		NameFields:          []string{"name"},
		InMeeting:           probe("LEAVE"),
		HangupSelectors:     []string{"#hangup-button"},
		ExitPhrases:         []string{"meeting ended"},
		LoginURLPatterns:    []string{"login.microsoft"},
	}
}

// fakePage renders a set of labels; clicking a label runs its hook.
type fakePage struct {
	mu        sync.Mutex
	url       string
	visible   map[string]bool
	hooks     map[string]func(p *fakePage)
	text      string
	nameField bool
	filled    []string
	clicks    []string
	shots     []string
	panicOn   string
	profile   string
	closed    int
}

func newFakePage(labels ...string) *fakePage {
	p := &fakePage{url: "https://teams.example.com/meet", visible: map[string]bool{}, hooks: map[string]func(*fakePage){}}
	for _, l := range labels {
		p.visible[l] = true
	}
	return p
}

// joinable returns a page where clicking JOIN reveals the meeting controls.
func joinable() *fakePage {
	p := newFakePage("JOIN")
	p.hooks["JOIN"] = func(p *fakePage) {
		delete(p.visible, "JOIN")
		p.visible["LEAVE"] = true
	}
	return p
}

func (p *fakePage) set(fn func(p *fakePage)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p)
}

func (p *fakePage) count(label string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.clicks {
		if c == label {
			n++
		}
	}
	return n
}

func (p *fakePage) screenshots() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.shots...)
}

func (p *fakePage) Navigate(context.Context, string) error { return nil }

func (p *fakePage) URL(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url, nil
}

func (p *fakePage) Screenshot(_ context.Context, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shots = append(p.shots, strings.TrimSuffix(filepath.Base(path), ".png"))
	return nil
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}

func (p *fakePage) ProfileDir() string { return p.profile }

func (p *fakePage) Call(ctx context.Context, fn string, out any, args ...any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	if fn == p.panicOn {
		p.mu.Unlock()
		panic("page exploded")
	}
	res := p.eval(fn, args)
	p.mu.Unlock()

	if out == nil {
		return nil
	}
	b, _ := json.Marshal(res)
	return json.Unmarshal(b, out)
}

func (p *fakePage) eval(fn string, args []any) any {
	switch fn {
	case browser.ReadyStateJS:
		return "complete"
	case browser.FindAndClickJS:
		click := args[2].(bool)
		for _, l := range args[0].([]string) {
			if !p.visible[l] {
				continue
			}
			if !click {
				return "found"
			}
			p.clicks = append(p.clicks, l)
			if h := p.hooks[l]; h != nil {
				h(p)
			}
			return "clicked"
		}
		return nil
	case browser.TextPresenceJS:
		for _, ph := range args[0].([]string) {
			if p.text != "" && strings.Contains(p.text, ph) {
				return ph
			}
		}
		return nil
	case browser.FillInputJS:
		if !p.nameField {
			return false
		}
		p.filled = append(p.filled, args[0].(string))
		return true
	case browser.SelectorPresenceJS, browser.ClickByLabelJS:
		return nil
	}
	return nil
}

type fakeLauncher struct {
	page Browser
	err  error
}

func (l *fakeLauncher) Launch(context.Context, string) (Browser, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.page, nil
}

// slowPage delays every Call by delay once slow reports true. The delay
// honours ctx like a real browser session.
type slowPage struct {
	*fakePage
	delay time.Duration
	slow  func() bool
}

func (p *slowPage) Call(ctx context.Context, fn string, out any, args ...any) error {
	if p.slow() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.delay):
		}
	}
	return p.fakePage.Call(ctx, fn, out, args...)
}

type fakeResolver struct{}

func (fakeResolver) Resolve(context.Context) string { return "VirtualSpeaker.monitor" }

type fakeEnforcer struct {
	mu      sync.Mutex
	started bool
	stopped bool
}

func (e *fakeEnforcer) Run(ctx context.Context) {
	e.mu.Lock()
	e.started = true
	e.mu.Unlock()
	<-ctx.Done()
	e.mu.Lock()
	e.stopped = true
	e.mu.Unlock()
}

type fakeEncoder struct {
	name     string
	stopOnce sync.Once
	stopCh   chan struct{}
	mu       sync.Mutex
	stops    int
}

func newFakeEncoder(name string) *fakeEncoder {
	return &fakeEncoder{name: name, stopCh: make(chan struct{})}
}

func (e *fakeEncoder) Name() string { return e.name }

func (e *fakeEncoder) Alive() bool {
	select {
	case <-e.stopCh:
		return false
	default:
		return true
	}
}

func (e *fakeEncoder) die() { e.stopOnce.Do(func() { close(e.stopCh) }) }

func (e *fakeEncoder) Stop(time.Duration) error {
	e.mu.Lock()
	e.stops++
	e.mu.Unlock()
	e.die()
	return nil
}

func (e *fakeEncoder) stopCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stops
}

// fakeCapture writes a new segment file every segmentEvery until stopped.
type fakeCapture struct {
	segmentEvery time.Duration
	audioErr     error
	videoErr     error

	mu    sync.Mutex
	audio *fakeEncoder
	video *fakeEncoder
}

func (c *fakeCapture) audioEncoder() *fakeEncoder {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.audio
}

func (c *fakeCapture) StartAudio(_ context.Context, task *meeting.Task, _ string) (Encoder, error) {
	if c.audioErr != nil {
		return nil, c.audioErr
	}
	enc := newFakeEncoder("audio")
	_ = os.WriteFile(task.SegmentPath(0), []byte("pcm 0"), 0o644)
	go func() {
		for i := 1; ; i++ {
			select {
			case <-enc.stopCh:
				return
			case <-time.After(c.segmentEvery):
			}
			_ = os.WriteFile(task.SegmentPath(i), []byte(fmt.Sprintf("pcm %d", i)), 0o644)
		}
	}()

	c.mu.Lock()
	c.audio = enc
	c.mu.Unlock()
	return enc, nil
}

func (c *fakeCapture) StartVideo(_ context.Context, task *meeting.Task) (Encoder, error) {
	if c.videoErr != nil {
		return nil, c.videoErr
	}
	enc := newFakeEncoder("video")
	_ = os.WriteFile(task.VideoPath(), []byte("mp4"), 0o644)

	c.mu.Lock()
	c.video = enc
	c.mu.Unlock()
	return enc, nil
}

// copyCompressor copies the input, failing for inputs listed in fail.
// When block is set it holds every input, or only the one named by hold.
type copyCompressor struct {
	fail  map[string]bool
	block chan struct{}
	hold  string
}

func (c *copyCompressor) Compress(_ context.Context, in, out string) error {
	if c.block != nil && (c.hold == "" || c.hold == filepath.Base(in)) {
		<-c.block
	}
	if c.fail[filepath.Base(in)] {
		return errors.New("ffmpeg exploded")
	}
	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	return os.WriteFile(out, data, 0o644)
}

type recordingUploader struct {
	mu    sync.Mutex
	names []string
}

func (u *recordingUploader) Upload(_ context.Context, _, localPath, remoteName string) error {
	if _, err := os.Stat(localPath); err != nil {
		return err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.names = append(u.names, remoteName)
	return nil
}

func (u *recordingUploader) uploaded() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.names...)
}

type echoTranscriber struct {
	reply string
}

func (t echoTranscriber) Transcribe(_ context.Context, path string) (string, error) {
	if t.reply != "" {
		return t.reply, nil
	}
	return "speaker_1: " + filepath.Base(path), nil
}

type stubSummarizer struct {
	mu    sync.Mutex
	input string
	calls int
}

func (s *stubSummarizer) Summarize(_ context.Context, transcript string) (*meeting.Briefing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.input = transcript
	return &meeting.Briefing{Subject: "Weekly sync", Body: "<p>ok</p>"}, nil
}

type stubNotifier struct {
	sent []*meeting.Briefing
}

func (n *stubNotifier) Send(_ context.Context, b *meeting.Briefing) error {
	n.sent = append(n.sent, b)
	return nil
}
