// Package storage mirrors task artifacts to remote object storage.
package storage

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Uploader copies a local file to <prefix>/<taskID>/<remoteName>.
type Uploader interface {
	Upload(ctx context.Context, taskID, localPath, remoteName string) error
	// Enabled is false for the no-op uploader.
	Enabled() bool
}

// Config selects and configures a backend.
type Config struct {
	Provider        string // "gcs", "s3" or ""
	Bucket          string
	Prefix          string
	CredentialsFile string
	Region          string
	Endpoint        string
}

// New returns the configured backend, or a no-op uploader when storage is
// not configured.
func New(cfg Config, log logrus.FieldLogger) (Uploader, error) {
	if cfg.Bucket == "" {
		return &Noop{Log: log}, nil
	}
	switch strings.ToLower(cfg.Provider) {
	case "", "gcs":
		return NewGCS(cfg, log), nil
	case "s3":
		return NewS3(cfg, log), nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}

// ObjectKey joins prefix, task and name with forward slashes.
func ObjectKey(prefix, taskID, remoteName string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return path.Join(taskID, remoteName)
	}
	return path.Join(prefix, taskID, remoteName)
}

func contentType(localPath string) string {
	if ct := mime.TypeByExtension(filepath.Ext(localPath)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func openLocal(localPath string) (*os.File, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("file not found for upload: %w", err)
	}
	return f, nil
}

// Noop logs a warning instead of uploading.
type Noop struct {
	Log logrus.FieldLogger
}

func (n *Noop) Upload(_ context.Context, taskID, localPath, remoteName string) error {
	n.Log.WithField("task_id", taskID).Warnf("no storage bucket configured, skipping upload of %s", remoteName)
	return nil
}

func (n *Noop) Enabled() bool { return false }
