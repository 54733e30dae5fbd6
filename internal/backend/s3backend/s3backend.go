// Package s3backend implements the Backend contract over an
// S3-compatible object store, so the same sharded layout that works on
// a local filesystem (internal/backend/fs) also works against a bucket.
package s3backend

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/brn2/gograph/internal/backend"
)

// Config carries the object-store connection parameters: endpoint,
// credentials, bucket, region, and the path-style flag used only by
// this backend.
type Config struct {
	Endpoint       string
	Region         string
	Bucket         string
	AccessKeyID    string
	SecretAccessKey string
	UsePathStyle   bool
}

// Client is the subset of the AWS SDK S3 client this backend depends
// on, narrowed so tests can supply a fake.
type Client interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Backend stores each key as an object in a single bucket, content-type
// marked application/json. Repeated IO failures trip a circuit breaker
// so a flaky object store degrades to fast errors instead of hanging
// every caller.
type Backend struct {
	client  Client
	bucket  string
	logger  *zap.Logger
	breaker *gobreaker.CircuitBreaker
}

// NewFromConfig builds an S3-compatible client from cfg and wraps it
// as a Backend.
func NewFromConfig(ctx context.Context, cfg Config, logger *zap.Logger) (*Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var optFns []func(*awsconfig.LoadOptions) error
	optFns = append(optFns, awsconfig.WithRegion(cfg.Region))
	if cfg.AccessKeyID != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return New(client, cfg.Bucket, logger), nil
}

// New wraps an existing S3-compatible client as a Backend.
func New(client Client, bucket string, logger *zap.Logger) *Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	st := gobreaker.Settings{
		Name:        "s3backend",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	}
	return &Backend{
		client:  client,
		bucket:  bucket,
		logger:  logger,
		breaker: gobreaker.NewCircuitBreaker(st),
	}
}

// Put implements backend.Backend.
func (b *Backend) Put(ctx context.Context, key string, value []byte) error {
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return b.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(b.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(value),
			ContentType: aws.String("application/json"),
		})
	})
	return translate(err)
}

// Get implements backend.Backend.
func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := b.breaker.Execute(func() (interface{}, error) {
		resp, err := b.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return nil, translate(err)
	}
	return out.([]byte), nil
}

// Delete implements backend.Backend. Deleting an absent key is not an
// error under S3 semantics either.
func (b *Backend) Delete(ctx context.Context, key string) error {
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(key),
		})
	})
	return translate(err)
}

// ListKeys implements backend.Backend, paginating ListObjectsV2 under
// prefix.
func (b *Backend) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	var token *string
	for {
		out, err := b.breaker.Execute(func() (interface{}, error) {
			return b.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
				Bucket:            aws.String(b.bucket),
				Prefix:            aws.String(prefix),
				ContinuationToken: token,
			})
		})
		if err != nil {
			return nil, translate(err)
		}
		resp := out.(*s3.ListObjectsV2Output)
		for _, obj := range resp.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
		if !aws.ToBool(resp.IsTruncated) {
			break
		}
		token = resp.NextContinuationToken
	}
	return keys, nil
}

// translate maps the SDK's NoSuchKey signal onto backend.ErrNotFound and
// passes every other error through unchanged, per the Backend contract.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return backend.ErrNotFound
	}
	return err
}
