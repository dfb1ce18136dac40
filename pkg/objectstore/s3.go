package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

type s3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type presigner interface {
	PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

type s3Presigner struct {
	client *s3.PresignClient
}

func (p s3Presigner) PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	req, err := p.client.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// S3Store serves objects through short-lived presigned GET URLs.
type S3Store struct {
	api       s3API
	presigner presigner
	bucket    string
	ttl       time.Duration
}

func NewS3Store(ctx context.Context, region, bucket string, ttl time.Duration) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	return newS3Store(client, s3Presigner{client: s3.NewPresignClient(client)}, bucket, ttl), nil
}

func newS3Store(api s3API, p presigner, bucket string, ttl time.Duration) *S3Store {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &S3Store{api: api, presigner: p, bucket: bucket, ttl: ttl}
}

func (s *S3Store) Upload(ctx context.Context, path, contentType string, body io.Reader) error {
	// The SDK needs a seekable body to sign the payload.
	data, err := ReadAll(body)
	if err != nil {
		return err
	}
	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(path),
		ContentType: aws.String(contentType),
		Body:        bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", path, err)
	}
	return nil
}

func (s *S3Store) ResolveDownloadURL(ctx context.Context, path string) (string, error) {
	_, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		if isNotFound(err) {
			return "", fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return "", fmt.Errorf("head object %s: %w", path, err)
	}

	url, err := s.presigner.PresignGet(ctx, s.bucket, path, s.ttl)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", path, err)
	}
	return url, nil
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}
