// Package storage archives sync job reports to object storage.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/infrastructure/config"
)

// objectAPI is the subset of the S3 client used by the archive
type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// S3SummaryArchive uploads job summaries and bulk delete reports as JSON objects.
// It is compatible with any S3-compatible storage (AWS S3, MinIO, etc.)
type S3SummaryArchive struct {
	client objectAPI
	bucket string
	prefix string
	logger *zap.Logger
}

// S3SummaryArchiveOption is a functional option for configuring S3SummaryArchive
type S3SummaryArchiveOption func(*S3SummaryArchive)

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) S3SummaryArchiveOption {
	return func(s *S3SummaryArchive) {
		s.logger = logger
	}
}

// NewS3SummaryArchive creates an archive from configuration.
// Without static keys the default AWS credential chain is used.
func NewS3SummaryArchive(ctx context.Context, cfg *config.ArchiveConfig, opts ...S3SummaryArchiveOption) (*S3SummaryArchive, error) {
	if cfg == nil {
		return nil, errors.New("archive configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("archive bucket is required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"", // session token (not used for static credentials)
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return newS3SummaryArchive(client, cfg.Bucket, cfg.Prefix, opts...), nil
}

func newS3SummaryArchive(client objectAPI, bucket, prefix string, opts ...S3SummaryArchiveOption) *S3SummaryArchive {
	a := &S3SummaryArchive{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// EnsureBucket creates the bucket if it doesn't exist.
// Call this during application startup to ensure the bucket is ready.
func (s *S3SummaryArchive) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("Creating archive bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		// Ignore "BucketAlreadyOwnedByYou" error (race condition)
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// JobSummaryKey returns the object key of a job summary:
// <prefix>/jobs/<store>/<yyyy>/<mm>/<dd>/<job>.json
func (s *S3SummaryArchive) JobSummaryKey(summary integration.SyncSummary) string {
	day := summary.StartedAt.UTC()
	return path.Join(s.prefix, "jobs", summary.StoreID.String(), day.Format("2006/01/02"), summary.JobID.String()+".json")
}

// BulkDeleteKey returns the object key of a bulk delete report
func (s *S3SummaryArchive) BulkDeleteKey(result integration.BulkDeleteResult, at time.Time) string {
	name := fmt.Sprintf("%s-%s.json", at.UTC().Format("20060102T150405Z"), result.EntityType)
	return path.Join(s.prefix, "bulk-deletes", result.StoreID.String(), name)
}

// ArchiveJobSummary uploads a finished job summary and returns its key
func (s *S3SummaryArchive) ArchiveJobSummary(ctx context.Context, summary integration.SyncSummary) (string, error) {
	key := s.JobSummaryKey(summary)
	if err := s.putJSON(ctx, key, summary, map[string]string{
		"job-id":   summary.JobID.String(),
		"store-id": summary.StoreID.String(),
		"status":   string(summary.Status),
	}); err != nil {
		return "", err
	}
	s.logger.Debug("archived job summary", zap.String("key", key))
	return key, nil
}

// ArchiveBulkDelete uploads a bulk delete report and returns its key
func (s *S3SummaryArchive) ArchiveBulkDelete(ctx context.Context, tenantID uuid.UUID, result integration.BulkDeleteResult) (string, error) {
	key := s.BulkDeleteKey(result, time.Now())
	if err := s.putJSON(ctx, key, result, map[string]string{
		"organization-id": tenantID.String(),
		"store-id":        result.StoreID.String(),
		"entity-type":     string(result.EntityType),
	}); err != nil {
		return "", err
	}
	s.logger.Debug("archived bulk delete report", zap.String("key", key))
	return key, nil
}

func (s *S3SummaryArchive) putJSON(ctx context.Context, key string, v any, metadata map[string]string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata:    metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

// GetBucket returns the bucket name
func (s *S3SummaryArchive) GetBucket() string {
	return s.bucket
}
