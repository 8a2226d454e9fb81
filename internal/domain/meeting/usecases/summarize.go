package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/anemonautas/meetingbot/internal/domain/meeting"
)

// Brief turns a task's transcripts into a briefing and mails it.
type Brief struct {
	Summarizer Summarizer
	Notifier   Notifier
	Uploader   Uploader
	Log        logrus.FieldLogger
}

// Execute returns nil without error when there is nothing to summarize.
func (b *Brief) Execute(ctx context.Context, task *meeting.Task) (*meeting.Briefing, error) {
	if b.Summarizer == nil {
		b.Log.Warn("no briefing service configured, skipping briefing")
		return nil, nil
	}

	transcript, n, err := ReadTranscripts(task)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		b.Log.Warn("no transcripts, skipping briefing")
		return nil, nil
	}

	briefing, err := b.Summarizer.Summarize(ctx, transcript)
	if err != nil {
		return nil, fmt.Errorf("summarizing %d transcripts: %w", n, err)
	}

	data, err := json.MarshalIndent(briefing, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(task.BriefingPath(), data, 0o644); err != nil {
		return nil, fmt.Errorf("writing briefing: %w", err)
	}

	var errs []error
	if err := b.Uploader.Upload(ctx, task.ID, task.BriefingPath(), filepath.Base(task.BriefingPath())); err != nil {
		errs = append(errs, fmt.Errorf("mirroring briefing: %w", err))
	}
	if b.Notifier != nil {
		if err := b.Notifier.Send(ctx, briefing); err != nil {
			errs = append(errs, err)
		}
	}
	b.Log.Infof("briefing %q ready", briefing.Subject)
	return briefing, errors.Join(errs...)
}

// ReadTranscripts concatenates the task's transcripts in segment order and
// returns how many were read.
func ReadTranscripts(task *meeting.Task) (string, int, error) {
	entries, err := os.ReadDir(task.TranscriptionsDir())
	if errors.Is(err, os.ErrNotExist) {
		return "", 0, nil
	}
	if err != nil {
		return "", 0, fmt.Errorf("reading transcriptions: %w", err)
	}

	type part struct {
		idx  int
		name string
	}
	var parts []part
	for _, e := range entries {
		if idx, ok := meeting.ParseTranscriptIndex(task.ID, e.Name()); ok && !e.IsDir() {
			parts = append(parts, part{idx, e.Name()})
		}
	}
	sort.Slice(parts, func(i, j int) bool {
		if parts[i].idx != parts[j].idx {
			return parts[i].idx < parts[j].idx
		}
		return parts[i].name < parts[j].name
	})

	texts := make([]string, 0, len(parts))
	for _, p := range parts {
		data, err := os.ReadFile(filepath.Join(task.TranscriptionsDir(), p.name))
		if err != nil {
			return "", 0, fmt.Errorf("reading transcript %s: %w", p.name, err)
		}
		texts = append(texts, strings.TrimSpace(string(data)))
	}
	return strings.Join(texts, "\n\n"), len(texts), nil
}
