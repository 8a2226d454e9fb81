package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
)

// S3 uploads to an S3-compatible bucket using the default AWS credential
// chain. Endpoint switches to path-style addressing for MinIO and friends.
type S3 struct {
	cfg Config
	log logrus.FieldLogger

	once        sync.Once
	uploader    *manager.Uploader
	uploaderErr error
}

func NewS3(cfg Config, log logrus.FieldLogger) *S3 {
	return &S3{cfg: cfg, log: log}
}

func (s *S3) Enabled() bool { return true }

func (s *S3) client(ctx context.Context) (*manager.Uploader, error) {
	s.once.Do(func() {
		var opts []func(*awsconfig.LoadOptions) error
		if s.cfg.Region != "" {
			opts = append(opts, awsconfig.WithRegion(s.cfg.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(context.WithoutCancel(ctx), opts...)
		if err != nil {
			s.uploaderErr = err
			return
		}
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if s.cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(s.cfg.Endpoint)
				o.UsePathStyle = true
			}
		})
		s.uploader = manager.NewUploader(client)
	})
	if s.uploaderErr != nil {
		return nil, fmt.Errorf("loading aws config: %w", s.uploaderErr)
	}
	return s.uploader, nil
}

func (s *S3) Upload(ctx context.Context, taskID, localPath, remoteName string) error {
	up, err := s.client(ctx)
	if err != nil {
		return err
	}

	f, err := openLocal(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	key := ObjectKey(s.cfg.Prefix, taskID, remoteName)
	_, err = up.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType(localPath)),
	})
	if err != nil {
		return fmt.Errorf("uploading s3://%s/%s: %w", s.cfg.Bucket, key, err)
	}

	s.log.WithField("task_id", taskID).Infof("uploaded s3://%s/%s", s.cfg.Bucket, key)
	return nil
}
