// Package archive moves sealed log segments to and from object storage.
// Sealing and archival happen off the serving path; the streaming plane only
// ever reads live, local segments.
package archive

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/adammck/blobstream/pkg/api"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type Store struct {
	bucket string

	mu sync.Mutex
	s3 *s3.Client
}

var _ api.ArchiveStore = (*Store)(nil)

func New(bucket string) *Store {
	return &Store{
		bucket: bucket,
	}
}

func (s *Store) Put(ctx context.Context, name string, r io.Reader, size int64) error {
	s3c, err := s.getS3(ctx)
	if err != nil {
		return err
	}

	_, err = s3c.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &s.bucket,
		Key:           &name,
		Body:          r,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return fmt.Errorf("PutObject: %w", err)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	s3c, err := s.getS3(ctx)
	if err != nil {
		return nil, err
	}

	output, err := s3c.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &name,
	})
	if err != nil {
		return nil, fmt.Errorf("GetObject: %w", err)
	}

	return output.Body, nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	s3c, err := s.getS3(ctx)
	if err != nil {
		return err
	}

	_, err = s3c.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &name,
	})
	if err != nil {
		return fmt.Errorf("DeleteObject: %w", err)
	}

	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	_, err := s.getS3(ctx)
	return err
}

func (s *Store) getS3(ctx context.Context) (*s3.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.s3 == nil {
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("LoadDefaultConfig: %w", err)
		}

		s.s3 = s3.NewFromConfig(cfg, func(o *s3.Options) {
			// path-style addressing, for minio and friends.
			o.UsePathStyle = true
		})
	}

	return s.s3, nil
}
