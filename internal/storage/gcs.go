package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// GCS uploads to a Google Cloud Storage bucket. The client is created on
// first use so that commands which never upload need no credentials.
type GCS struct {
	cfg Config
	log logrus.FieldLogger

	once      sync.Once
	client    *storage.Client
	clientErr error
}

var errClosed = errors.New("storage closed")

func NewGCS(cfg Config, log logrus.FieldLogger) *GCS {
	return &GCS{cfg: cfg, log: log}
}

func (g *GCS) Enabled() bool { return true }

func (g *GCS) bucket(ctx context.Context) (*storage.BucketHandle, error) {
	g.once.Do(func() {
		var opts []option.ClientOption
		if g.cfg.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(g.cfg.CredentialsFile))
		}
		g.client, g.clientErr = storage.NewClient(context.WithoutCancel(ctx), opts...)
	})
	if g.clientErr != nil {
		return nil, fmt.Errorf("creating gcs client: %w", g.clientErr)
	}
	return g.client.Bucket(g.cfg.Bucket), nil
}

func (g *GCS) Upload(ctx context.Context, taskID, localPath, remoteName string) error {
	bkt, err := g.bucket(ctx)
	if err != nil {
		return err
	}

	f, err := openLocal(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	key := ObjectKey(g.cfg.Prefix, taskID, remoteName)
	w := bkt.Object(key).NewWriter(ctx)
	w.ContentType = contentType(localPath)

	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("uploading gs://%s/%s: %w", g.cfg.Bucket, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("uploading gs://%s/%s: %w", g.cfg.Bucket, key, err)
	}

	g.log.WithField("task_id", taskID).Infof("uploaded gs://%s/%s", g.cfg.Bucket, key)
	return nil
}

// Close releases the client if one was created. It waits for a client
// being created concurrently, and later uploads fail with errClosed.
func (g *GCS) Close() error {
	g.once.Do(func() { g.clientErr = errClosed })
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
