// Package datastore loads raw artifacts from the workflow datastore.
// Legacy runtimes recorded full log blobs in object storage and left a
// location reference in the task metadata; this package resolves those
// references.
package datastore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config contains configuration for the object store.
type S3Config struct {
	// Endpoint overrides the AWS endpoint, for S3-compatible stores.
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string

	// Bucket holds objects referenced by bare (non-URL) locations.
	Bucket string
}

// S3Store loads blobs from S3 or an S3-compatible object store.
type S3Store struct {
	client *s3.Client
	bucket string
	log    *slog.Logger
}

// NewS3Store creates an object store client.
func NewS3Store(ctx context.Context, cfg S3Config, log *slog.Logger) (*S3Store, error) {
	if log == nil {
		log = slog.Default()
	}

	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	opts := []func(*awscfg.LoadOptions) error{awscfg.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.Endpoint != ""
	})

	return &S3Store{client: client, bucket: cfg.Bucket, log: log}, nil
}

// Load fetches the blob at the given location. Locations are either
// "s3://bucket/key" URLs or bare keys in the configured bucket.
func (s *S3Store) Load(ctx context.Context, location string) ([]byte, error) {
	bucket, key, err := s.resolve(location)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", bucket, key, err)
	}

	s.log.Debug("loaded blob", "bucket", bucket, "key", key, "size", len(data))
	return data, nil
}

func (s *S3Store) resolve(location string) (bucket, key string, err error) {
	if strings.HasPrefix(location, "s3://") {
		u, err := url.Parse(location)
		if err != nil {
			return "", "", fmt.Errorf("parse location %q: %w", location, err)
		}
		return u.Host, strings.TrimPrefix(u.Path, "/"), nil
	}
	if s.bucket == "" {
		return "", "", fmt.Errorf("no bucket configured for bare location %q", location)
	}
	return s.bucket, location, nil
}
