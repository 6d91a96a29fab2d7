// Package storage uploads transaction exports to S3-compatible object
// storage and hands out presigned download URLs.
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// ExportStorage wraps the S3 client for CSV exports
type ExportStorage struct {
	client *s3.Client
	bucket string
}

// ExportResult describes an uploaded export
type ExportResult struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// NewExportStorage creates an S3 client. A non-empty endpoint points the
// client at an S3-compatible provider (DigitalOcean Spaces, MinIO).
func NewExportStorage(endpoint, region, bucket, accessKeyID, secretAccessKey string) (*ExportStorage, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKeyID, secretAccessKey, "",
		)),
	}

	if endpoint != "" {
		customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			if service == s3.ServiceID {
				return aws.Endpoint{
					URL:           endpoint,
					SigningRegion: region,
				}, nil
			}
			return aws.Endpoint{}, fmt.Errorf("unknown endpoint requested")
		})
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(customResolver))
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(), opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = endpoint != ""
	})

	return &ExportStorage{client: client, bucket: bucket}, nil
}

// UploadExport uploads a CSV export for a user and returns a presigned
// download URL valid for 15 minutes.
func (s *ExportStorage) UploadExport(ctx context.Context, userID string, body io.Reader) (*ExportResult, error) {
	key := fmt.Sprintf("exports/%s/%s-%s.csv", userID, time.Now().Format("20060102"), uuid.NewString())

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String("text/csv"),
		ACL:         types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload export: %w", err)
	}

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get export info: %w", err)
	}

	url, err := s.PresignDownload(ctx, key, 15*time.Minute)
	if err != nil {
		return nil, err
	}

	var size int64
	if head.ContentLength != nil {
		size = *head.ContentLength
	}
	return &ExportResult{Key: key, URL: url, Size: size}, nil
}

// PresignDownload creates a presigned URL for downloading an export
func (s *ExportStorage) PresignDownload(ctx context.Context, key string, expiration time.Duration) (string, error) {
	presignClient := s3.NewPresignClient(s.client)

	req, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expiration
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return req.URL, nil
}
