// Package s3store keeps media objects in an S3 compatible bucket.
package s3store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/jrsteele09/go-video-server/media"
)

var _ media.Store = (*Store)(nil)

// objectAPI is the part of *s3.Client the store needs.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

var loadDefaultAWSConfig = config.LoadDefaultConfig

type Options struct {
	Bucket    string
	Region    string
	Endpoint  string // e.g. http://localhost:9000 for MinIO, empty for AWS
	AccessKey string
	SecretKey string
	// PublicBaseURL prefixes object keys in returned URLs. Derived from
	// Endpoint and Bucket when empty.
	PublicBaseURL string
}

type Store struct {
	client  objectAPI
	bucket  string
	baseURL string
}

func New(ctx context.Context, opts Options) (*Store, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	cfg, err := loadDefaultAWSConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newWithClient(client, opts), nil
}

func newWithClient(client objectAPI, opts Options) *Store {
	return &Store{
		client:  client,
		bucket:  opts.Bucket,
		baseURL: publicBaseURL(opts),
	}
}

func publicBaseURL(opts Options) string {
	if opts.PublicBaseURL != "" {
		return strings.TrimRight(opts.PublicBaseURL, "/")
	}
	if opts.Endpoint != "" {
		return strings.TrimRight(opts.Endpoint, "/") + "/" + opts.Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", opts.Bucket, opts.Region)
}

// Put buffers the upload so the SDK can sign and retry with a seekable body.
func (s *Store) Put(ctx context.Context, key string, upload media.Upload) (string, error) {
	if upload.Body == nil {
		return "", media.ErrEmptyUpload
	}
	data, err := io.ReadAll(upload.Body)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return "", media.ErrEmptyUpload
	}

	in := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if upload.ContentType != "" {
		in.ContentType = aws.String(upload.ContentType)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("s3 put %s: %w", key, err)
	}
	return s.baseURL + "/" + key, nil
}

func (s *Store) Delete(ctx context.Context, url string) error {
	key, ok := s.keyFromURL(url)
	if !ok {
		return fmt.Errorf("s3 delete: %q is not in bucket %s", url, s.bucket)
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s: %w", key, err)
	}
	return nil
}

func (s *Store) keyFromURL(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, s.baseURL+"/")
	if !ok || key == "" {
		return "", false
	}
	return key, true
}
