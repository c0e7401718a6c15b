package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"

	cfg "github.com/GTDGit/gtd_catalog/internal/config"
	"github.com/GTDGit/gtd_catalog/internal/docstore"
)

// S3Service stores uploaded catalog files in one S3 bucket. The logical
// bucket passed by callers becomes the key prefix.
type S3Service struct {
	client   *s3.Client
	bucket   string
	region   string
	endpoint string
}

// NewS3Service creates a new S3 service
func NewS3Service(ctx context.Context, s3Cfg *cfg.S3Config) (*S3Service, error) {
	if s3Cfg == nil {
		return nil, fmt.Errorf("S3 config is nil")
	}
	if s3Cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket is not configured")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(s3Cfg.Region)}
	if s3Cfg.AccessKeyID != "" && s3Cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s3Cfg.AccessKeyID, s3Cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if s3Cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(s3Cfg.Endpoint)
		}
		o.UsePathStyle = s3Cfg.UsePathStyle
	})

	return &S3Service{
		client:   client,
		bucket:   s3Cfg.Bucket,
		region:   s3Cfg.Region,
		endpoint: s3Cfg.Endpoint,
	}, nil
}

// CreateFile uploads file under bucket/id and returns the id.
func (s *S3Service) CreateFile(ctx context.Context, bucket, id string, file docstore.File) (string, error) {
	if id == "" {
		return "", fmt.Errorf("file id is required")
	}
	key := objectKey(bucket, id)

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(file.Data),
		ContentType: aws.String(contentType),
		Metadata:    map[string]string{"filename": file.Name},
	})
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to upload to S3")
		return "", fmt.Errorf("failed to upload: %w", err)
	}

	log.Debug().Str("key", key).Int("size", len(file.Data)).Msg("Uploaded file to S3")
	return id, nil
}

// DeleteFile removes bucket/id. A missing object is reported as docstore.ErrNotFound.
func (s *S3Service) DeleteFile(ctx context.Context, bucket, id string) error {
	key := objectKey(bucket, id)

	if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return fmt.Errorf("%w: file %s", docstore.ErrNotFound, key)
		}
		return err
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to delete from S3")
		return fmt.Errorf("failed to delete: %w", err)
	}
	return nil
}

// GetObjectURL returns the URL for an S3 object
func (s *S3Service) GetObjectURL(bucket, id string) string {
	key := objectKey(bucket, id)
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

func objectKey(bucket, id string) string {
	return fmt.Sprintf("catalog/%s/%s", bucket, id)
}
