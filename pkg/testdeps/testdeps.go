// Package testdeps starts the external services the integration tests need
// (mongo for the segment index, minio standing in for s3) in containers, and
// tears them down when the test ends. Set SKIP_INTEGRATION=1 to skip every
// test which uses this package.
package testdeps

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/testcontainers/testcontainers-go"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"
	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"
)

const (
	s3Key    = "blobstream"
	s3Secret = "blobstream-secret"
	s3Bucket = "blobstream-test"
	s3Region = "us-east-1"
)

type Env struct {
	t   *testing.T
	cfg *config

	mongoURL string
	S3URI    string
	S3Bucket string
	S3Key    string
	S3Secret string

	containers []testcontainers.Container
}

type Option func(*config)

type config struct {
	useMongo bool
	useMinio bool
}

func WithMongo() Option {
	return func(c *config) {
		c.useMongo = true
	}
}

func WithMinio() Option {
	return func(c *config) {
		c.useMinio = true
	}
}

func New(ctx context.Context, t *testing.T, opts ...Option) *Env {
	t.Helper()

	if os.Getenv("SKIP_INTEGRATION") == "1" {
		t.Skip("Skipping integration test")
	}

	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	env := &Env{
		t:        t,
		cfg:      cfg,
		S3Bucket: s3Bucket,
		S3Key:    s3Key,
		S3Secret: s3Secret,
	}

	if cfg.useMongo {
		env.startMongo(ctx)
	}

	if cfg.useMinio {
		env.startMinio(ctx)
	}

	t.Cleanup(func() {
		for _, c := range env.containers {
			c.Terminate(ctx)
		}
	})

	return env
}

// MongoURL returns the connection string for the mongo container. Fails the
// test unless the env was built with WithMongo.
func (e *Env) MongoURL() string {
	e.t.Helper()

	if !e.cfg.useMongo {
		e.t.Fatalf("mongo is not enabled; use WithMongo to enable it")
	}

	return e.mongoURL
}

func (e *Env) startMongo(ctx context.Context) {
	e.t.Helper()

	mongoC, err := tcmongo.Run(ctx,
		"mongo:6",
		tcmongo.WithReplicaSet("rs"))
	if err != nil {
		e.t.Fatalf("tcmongo.Run: %v", err)
	}

	e.containers = append(e.containers, mongoC)

	cs, err := mongoC.ConnectionString(ctx)
	if err != nil {
		e.t.Fatalf("ConnectionString: %v", err)
	}

	// The single-node replset needs a direct connection, and the URL from
	// ConnectionString doesn't say so.
	e.mongoURL = fmt.Sprintf("%s/?connect=direct", cs)
}

func (e *Env) startMinio(ctx context.Context) {
	e.t.Helper()

	minioC, err := tcminio.Run(ctx,
		"minio/minio:latest",
		tcminio.WithUsername(s3Key),
		tcminio.WithPassword(s3Secret))
	if err != nil {
		e.t.Fatalf("tcminio.Run: %v", err)
	}

	e.containers = append(e.containers, minioC)

	url, err := minioC.ConnectionString(ctx)
	if err != nil {
		e.t.Fatalf("ConnectionString: %v", err)
	}

	mc, err := minio.New(url, &minio.Options{
		Creds:  credentials.NewStaticV4(s3Key, s3Secret, ""),
		Secure: false,
	})
	if err != nil {
		e.t.Fatalf("minio.New: %v", err)
	}

	err = mc.MakeBucket(ctx, s3Bucket, minio.MakeBucketOptions{Region: s3Region})
	if err != nil {
		e.t.Fatalf("MakeBucket: %v", err)
	}

	minioPort, err := minioC.MappedPort(ctx, "9000/tcp")
	if err != nil {
		e.t.Fatalf("get minio port: %v", err)
	}
	e.S3URI = fmt.Sprintf("http://localhost:%s", minioPort.Port())

	// The archive client reads its config from the environment, the same way
	// it does in production. Setenv restores these when the test ends.
	e.t.Setenv("AWS_ACCESS_KEY_ID", e.S3Key)
	e.t.Setenv("AWS_SECRET_ACCESS_KEY", e.S3Secret)
	e.t.Setenv("AWS_ENDPOINT_URL_S3", e.S3URI)
	e.t.Setenv("AWS_REGION", "auto")
}
