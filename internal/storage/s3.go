// Package storage uploads finished extraction results to S3 and fetches
// them back for the results API.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// S3Client wraps the AWS S3 client for result storage.
type S3Client struct {
	client     *s3.Client
	bucketName string
}

// ObjectMetadata describes a stored result object.
type ObjectMetadata struct {
	OriginalName string            `json:"original_name"`
	ContentType  string            `json:"content_type"`
	Size         int64             `json:"size"`
	Metadata     map[string]string `json:"metadata"`
}

// NewS3Client creates a new S3 client. An empty region defers to the
// ambient AWS configuration.
func NewS3Client(ctx context.Context, bucketName, region string) (*S3Client, error) {
	var opts []func(*awscfg.LoadOptions) error
	if region != "" {
		opts = append(opts, awscfg.WithRegion(region))
	}
	cfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Client{
		client:     s3.NewFromConfig(cfg),
		bucketName: bucketName,
	}, nil
}

// UploadResult uploads a result document to S3.
func (s *S3Client) UploadResult(ctx context.Context, key string, data []byte, meta *ObjectMetadata) error {
	s3Metadata := make(map[string]string)
	contentType := "application/json"
	if meta != nil {
		if meta.ContentType != "" {
			contentType = meta.ContentType
		}
		if meta.OriginalName != "" {
			s3Metadata["name"] = meta.OriginalName
		}
		for k, v := range meta.Metadata {
			s3Metadata[k] = v
		}
	}

	output, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		Metadata:    s3Metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}

	etag := ""
	if output.ETag != nil {
		etag = *output.ETag
	}
	log.Info().Str("key", key).Int("size", len(data)).Str("etag", etag).Msg("uploaded result to S3")
	return nil
}

// DownloadResult downloads a stored result from S3.
func (s *S3Client) DownloadResult(ctx context.Context, key string) ([]byte, *ObjectMetadata, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to download from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read S3 object: %w", err)
	}

	meta := &ObjectMetadata{Metadata: make(map[string]string)}
	for k, v := range result.Metadata {
		meta.Metadata[strings.ToLower(k)] = v
	}
	if name, ok := meta.Metadata["name"]; ok {
		meta.OriginalName = name
	}
	if result.ContentType != nil {
		meta.ContentType = *result.ContentType
	}
	if result.ContentLength != nil {
		meta.Size = *result.ContentLength
	}

	log.Debug().Str("key", key).Int("size", len(data)).Msg("downloaded result from S3")
	return data, meta, nil
}

// ListNextVersion returns the next available integer suffix for a base key using pattern baseKey_v{N}
func (s *S3Client) ListNextVersion(ctx context.Context, baseKey string) (int, error) {
	if baseKey == "" {
		return 1, nil
	}

	prefix := baseKey + "_v"
	maxVersion := 0

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucketName),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 1, fmt.Errorf("list versions failed: %w", err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			key := *obj.Key
			if strings.HasPrefix(key, prefix) {
				verStr := strings.TrimPrefix(key, prefix)
				if n, err := strconv.Atoi(verStr); err == nil {
					if n > maxVersion {
						maxVersion = n
					}
				}
			}
		}
	}

	return maxVersion + 1, nil
}
