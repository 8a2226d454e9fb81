package audio

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// PlaceholderSource is returned when no monitor source exists. Recording
// from it may be silent.
const PlaceholderSource = "0"

// SourceResolver finds the PulseAudio monitor source to record from.
type SourceResolver struct {
	Runner    Runner
	Pactl     string
	Preferred string
	Attempts  int
	Interval  time.Duration
	Log       logrus.FieldLogger
}

// Resolve never fails: preferred source, else any monitor, else the placeholder.
func (r *SourceResolver) Resolve(ctx context.Context) string {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		if i > 0 && !sleep(ctx, r.Interval) {
			break
		}
		if names, err := r.sources(ctx); err == nil {
			for _, n := range names {
				if n == r.Preferred {
					r.Log.Infof("audio source found: %s", n)
					return n
				}
			}
		}
	}

	if names, err := r.sources(context.WithoutCancel(ctx)); err == nil {
		for _, n := range names {
			if strings.Contains(n, "monitor") {
				r.Log.Warnf("%s not found, falling back to %s", r.Preferred, n)
				return n
			}
		}
	}

	r.Log.Errorf("no audio monitor source found, using %q; recording might be silent", PlaceholderSource)
	return PlaceholderSource
}

// sources lists source names from `pactl list sources short`
// (columns: id name driver format state).
func (r *SourceResolver) sources(ctx context.Context) ([]string, error) {
	out, err := r.Runner.Output(ctx, r.Pactl, "list", "sources", "short")
	if err != nil {
		return nil, err
	}
	return column(out, 1), nil
}

// RoutingEnforcer keeps every playback stream routed to the capture sink.
type RoutingEnforcer struct {
	Runner   Runner
	Pactl    string
	Sink     string
	Interval time.Duration
	Log      logrus.FieldLogger
}

// Run loops until ctx is cancelled. Per-iteration errors are ignored.
func (e *RoutingEnforcer) Run(ctx context.Context) {
	e.Log.Info("audio routing enforcer started")
	defer e.Log.Info("audio routing enforcer stopped")

	for {
		if ctx.Err() != nil {
			return
		}
		e.enforce(ctx)
		if !sleep(ctx, e.Interval) {
			return
		}
	}
}

// sleep waits d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (e *RoutingEnforcer) enforce(ctx context.Context) {
	out, err := e.Runner.Output(ctx, e.Pactl, "list", "sink-inputs", "short")
	if err != nil {
		return
	}
	for _, id := range column(out, 0) {
		_ = e.Runner.Run(ctx, e.Pactl, "move-sink-input", id, e.Sink)
		_ = e.Runner.Run(ctx, e.Pactl, "set-sink-input-mute", id, "0")
		_ = e.Runner.Run(ctx, e.Pactl, "set-sink-input-volume", id, "100%")
	}
}

// column returns the n-th whitespace-separated field of each non-empty line.
func column(out []byte, n int) []string {
	var fields []string
	for _, line := range strings.Split(string(out), "\n") {
		parts := strings.Fields(line)
		if len(parts) > n {
			fields = append(fields, parts[n])
		}
	}
	return fields
}
