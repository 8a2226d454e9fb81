package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Field keys shared by every component.
const (
	KeyTaskID    = "task_id"
	KeyComponent = "component"
	KeySegment   = "segment"
)

// New builds a logger writing to w (stderr when nil).
// format is "json" or "text"; level follows logrus names and defaults to info.
func New(level, format string, w io.Writer) *logrus.Logger {
	if w == nil {
		w = os.Stderr
	}

	l := logrus.New()
	l.SetOutput(w)

	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	if strings.EqualFold(format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l
}

// ForTask returns an entry tagged with the task id.
func ForTask(l logrus.FieldLogger, taskID string) *logrus.Entry {
	return l.WithField(KeyTaskID, taskID)
}

// Component tags an entry with a component name.
func Component(l logrus.FieldLogger, name string) *logrus.Entry {
	return l.WithField(KeyComponent, name)
}

// Discard returns an entry that drops everything. Useful as a zero value.
func Discard() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}
