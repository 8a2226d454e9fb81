package output

import (
	"fmt"
	"io"
	"time"

	"github.com/anemonautas/meetingbot/internal/domain/meeting"
)

type Formatter struct {
	w io.Writer
}

func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: w}
}

func (f *Formatter) TaskAccepted(acc *meeting.Acceptance, dir string) {
	fmt.Fprintf(f.w, "🎙️  Task %s %s\n", acc.TaskID, acc.Status)
	fmt.Fprintf(f.w, "📁 Working directory: %s\n", dir)
}

func (f *Formatter) TaskFinished(r *meeting.Report) {
	fmt.Fprintf(f.w, "⏹️  Task %s finished (%s): %s\n", r.TaskID, formatDuration(r.FinishedAt.Sub(r.StartedAt)), exitLabel(r))

	done, failed := 0, 0
	for _, s := range r.Segments {
		switch s.State {
		case meeting.SegmentDone:
			done++
		case meeting.SegmentFailed:
			failed++
		}
	}
	if len(r.Segments) > 0 {
		fmt.Fprintf(f.w, "🧩 Segments: %d done, %d failed\n", done, failed)
	}
	if len(r.Abandoned) > 0 {
		fmt.Fprintf(f.w, "⚠️  Segments %v still processing, briefing skipped\n", r.Abandoned)
	}
	if r.Err != nil {
		fmt.Fprintf(f.w, "⚠️  %v\n", r.Err)
	}
}

func (f *Formatter) BriefingDone(path, subject string) {
	fmt.Fprintf(f.w, "✅ Briefing %q saved: %s\n", subject, path)
}

func (f *Formatter) Error(msg string) {
	fmt.Fprintf(f.w, "❌ %s\n", msg)
}

func (f *Formatter) Info(msg string) {
	fmt.Fprintf(f.w, "ℹ️  %s\n", msg)
}

func (f *Formatter) Success(msg string) {
	fmt.Fprintf(f.w, "✅ %s\n", msg)
}

func (f *Formatter) Warning(msg string) {
	fmt.Fprintf(f.w, "⚠️  %s\n", msg)
}

func (f *Formatter) TaskListHeader() {
	fmt.Fprintf(f.w, "📁 Tasks:\n\n")
}

func (f *Formatter) TaskListItem(name string, segments, transcripts int, hasBriefing bool) {
	status := ""
	if hasBriefing {
		status = " ✅"
	} else if transcripts > 0 {
		status = " 📝"
	}
	fmt.Fprintf(f.w, "  %s  %d segments, %d transcripts%s\n", name, segments, transcripts, status)
}

func (f *Formatter) SetupCheck(name string, ok bool, detail string) {
	if ok {
		fmt.Fprintf(f.w, "  ✅ %s: %s\n", name, detail)
	} else {
		fmt.Fprintf(f.w, "  ❌ %s: %s\n", name, detail)
	}
}

func exitLabel(r *meeting.Report) string {
	switch r.ExitReason {
	case meeting.ExitJoinFailed:
		return "could not join (" + string(r.JoinState) + ")"
	case meeting.ExitNone:
		return "unknown"
	}
	return string(r.ExitReason)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
