package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"

	"github.com/prn-tf/squidcoin/internal/config"
)

// S3Store implements ObjectStore on an S3-compatible bucket.
type S3Store struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	logger    zerolog.Logger
}

// NewS3Store builds an S3 client from configuration.
// Static credentials are used when both keys are set; otherwise the default
// AWS credential chain applies. A custom endpoint selects an S3-compatible
// service such as MinIO.
func NewS3Store(ctx context.Context, cfg config.S3StorageConfig, logger zerolog.Logger) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	logger.Info().
		Str("bucket", cfg.Bucket).
		Str("region", cfg.Region).
		Str("endpoint", cfg.Endpoint).
		Msg("configured S3 object storage")

	return NewS3StoreFromClient(client, cfg.Bucket, logger), nil
}

// NewS3StoreFromClient wraps an existing S3 client.
func NewS3StoreFromClient(client *s3.Client, bucket string, logger zerolog.Logger) *S3Store {
	return &S3Store{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    bucket,
		logger:    logger.With().Str("component", "s3").Logger(),
	}
}

// PresignGet returns a URL that downloads the object at key.
func (s *S3Store) PresignGet(ctx context.Context, key string, ttl time.Duration) (*PresignedURL, error) {
	if key == "" {
		return nil, fmt.Errorf("object key cannot be empty")
	}

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("failed to presign GET")
		return nil, fmt.Errorf("failed to presign download: %w", err)
	}

	return &PresignedURL{URL: req.URL, Method: http.MethodGet, ExpiresAt: time.Now().UTC().Add(ttl)}, nil
}

// PresignPut returns a URL that uploads the object at key.
func (s *S3Store) PresignPut(ctx context.Context, key string, ttl time.Duration) (*PresignedURL, error) {
	if key == "" {
		return nil, fmt.Errorf("object key cannot be empty")
	}

	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("failed to presign PUT")
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}

	return &PresignedURL{URL: req.URL, Method: http.MethodPut, ExpiresAt: time.Now().UTC().Add(ttl)}, nil
}

// Exists reports whether an object is stored at key.
func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to head object: %w", err)
	}
	return true, nil
}

// Delete removes the object at key.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// Ensure S3Store implements ObjectStore.
var _ ObjectStore = (*S3Store)(nil)
