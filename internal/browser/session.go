package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

// Options configures the Chrome instance behind a Session.
type Options struct {
	ExecPath     string // empty: let chromedp find Chrome
	ProfileRoot  string
	AvatarY4M    string // optional fake webcam source
	WindowWidth  int
	WindowHeight int
	Language     string
	CallTimeout  time.Duration
}

// Session owns one Chrome process and its disposable profile directory.
type Session struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	profileDir  string
	timeout     time.Duration
	closeOnce   sync.Once
}

// ProfileDirFor returns the disposable profile directory for a task.
func ProfileDirFor(root, taskID string) string {
	return filepath.Join(root, "profile_"+taskID)
}

// Launch starts Chrome for taskID. The session outlives ctx; call Close.
func Launch(ctx context.Context, taskID string, opts Options, log logrus.FieldLogger) (*Session, error) {
	profileDir := ProfileDirFor(opts.ProfileRoot, taskID)

	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("headless", "new"),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("autoplay-policy", "no-user-gesture-required"),
		chromedp.Flag("lang", opts.Language),
		chromedp.Flag("use-fake-device-for-media-stream", true),
		chromedp.Flag("use-fake-ui-for-media-stream", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserDataDir(profileDir),
	}
	if opts.WindowWidth > 0 && opts.WindowHeight > 0 {
		allocOpts = append(allocOpts, chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.AvatarY4M != "" {
		if _, err := os.Stat(opts.AvatarY4M); err == nil {
			allocOpts = append(allocOpts, chromedp.Flag("use-file-for-fake-video-capture", opts.AvatarY4M))
		} else {
			log.Warnf("avatar %s not found, using the default fake camera", opts.AvatarY4M)
		}
	}

	base := context.WithoutCancel(ctx)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(base, allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithErrorf(log.Debugf))

	// The first Run starts the browser and must use the tab context itself,
	// otherwise a derived timeout would tear the browser down with it.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("starting chrome: %w", err)
	}

	timeout := opts.CallTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Session{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		profileDir:  profileDir,
		timeout:     timeout,
	}, nil
}

// ProfileDir is the directory Chrome was started with.
func (s *Session) ProfileDir() string { return s.profileDir }

func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	callCtx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(callCtx, actions...)
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url))
}

func (s *Session) URL(ctx context.Context) (string, error) {
	var loc string
	if err := s.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

func (s *Session) Call(ctx context.Context, fn string, out any, args ...any) error {
	expr, err := callExpression(fn, args...)
	if err != nil {
		return err
	}
	return s.run(ctx, chromedp.Evaluate(expr, out))
}

func (s *Session) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := s.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0o644)
}

// Close shuts the tab and the browser process. Safe to call repeatedly.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.cancelTab()
		s.cancelAlloc()
	})
	return nil
}

func callExpression(fn string, args ...any) (string, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return "", fmt.Errorf("encoding script argument %d: %w", i, err)
		}
		parts[i] = string(b)
	}
	return "(" + fn + ")(" + strings.Join(parts, ", ") + ")", nil
}
