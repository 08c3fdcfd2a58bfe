// Package storage provides object storage for archived product images.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/erp/stockledger/internal/infrastructure/persistence"
	"go.uber.org/zap"
)

// Ensure S3ImageArchive implements persistence.ImageArchive
var _ persistence.ImageArchive = (*S3ImageArchive)(nil)

// objectAPI is the subset of the S3 client used by the archive
type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// S3ImageArchive stores image data URLs that were too large to persist
// inline. It works with any S3-compatible backend (AWS S3, MinIO, RustFS).
type S3ImageArchive struct {
	client    objectAPI
	bucket    string
	keyPrefix string
	logger    *zap.Logger
}

// S3ImageArchiveOption is a functional option for configuring S3ImageArchive
type S3ImageArchiveOption func(*S3ImageArchive)

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) S3ImageArchiveOption {
	return func(a *S3ImageArchive) {
		a.logger = logger
	}
}

// NewS3ImageArchive creates an archive from configuration
func NewS3ImageArchive(ctx context.Context, cfg config.ObjectStorageConfig, opts ...S3ImageArchiveOption) (*S3ImageArchive, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("object storage bucket is required")
	}
	if cfg.AccessKeyID == "" {
		return nil, errors.New("object storage access key is required")
	}
	if cfg.SecretAccessKey == "" {
		return nil, errors.New("object storage secret key is required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(normalizeEndpoint(cfg.Endpoint))
		}
	})

	return newS3ImageArchive(client, cfg.Bucket, cfg.KeyPrefix, opts...), nil
}

func newS3ImageArchive(client objectAPI, bucket, keyPrefix string, opts ...S3ImageArchiveOption) *S3ImageArchive {
	a := &S3ImageArchive{
		client:    client,
		bucket:    bucket,
		keyPrefix: keyPrefix,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// EnsureBucket creates the bucket if it doesn't exist
func (a *S3ImageArchive) EnsureBucket(ctx context.Context) error {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	a.logger.Info("Creating image archive bucket", zap.String("bucket", a.bucket))
	_, err = a.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Ping checks that the bucket is reachable
func (a *S3ImageArchive) Ping(ctx context.Context) error {
	if _, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(a.bucket)}); err != nil {
		return fmt.Errorf("image archive bucket %s unreachable: %w", a.bucket, err)
	}
	return nil
}

// Put stores image under the configured prefix and returns its key
func (a *S3ImageArchive) Put(ctx context.Context, name, image string) (string, error) {
	if name == "" {
		return "", errors.New("object name is required")
	}
	key := a.keyPrefix + name

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(image),
		ContentType: aws.String("text/plain"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image %s: %w", key, err)
	}

	a.logger.Debug("Image archived",
		zap.String("bucket", a.bucket),
		zap.String("key", key),
		zap.Int("bytes", len(image)),
	)
	return key, nil
}

// Fetch returns the image stored under key
func (a *S3ImageArchive) Fetch(ctx context.Context, key string) (string, error) {
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return "", shared.NewNotFoundError("Archived image not found: " + key)
		}
		return "", fmt.Errorf("failed to download image %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read image %s: %w", key, err)
	}
	return string(data), nil
}

// Bucket returns the bucket name
func (a *S3ImageArchive) Bucket() string {
	return a.bucket
}

func normalizeEndpoint(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return "https://" + endpoint
}
