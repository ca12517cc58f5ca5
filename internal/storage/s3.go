package storage

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/agentstation/layersync/pkg/errors"
)

// S3Config configures an S3-compatible store.
type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // host or URL of an S3-compatible service; empty for AWS
	UsePathStyle    bool
}

// Configured reports whether enough is set to build a client.
func (c S3Config) Configured() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// S3Store reads and writes objects in S3-compatible storage.
type S3Store struct {
	client *s3.Client
}

// NewS3Store creates an S3Store with static credentials.
func NewS3Store(cfg S3Config) (*S3Store, error) {
	if !cfg.Configured() {
		return nil, errors.NewConfigError("storage.s3", "access key and secret are required", errors.ErrCredentialsRequired)
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := s3.Options{
		Region: region,
		Credentials: credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		),
		UsePathStyle: cfg.UsePathStyle,
	}
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		if !strings.Contains(endpoint, "://") {
			endpoint = "https://" + endpoint
		}
		opts.BaseEndpoint = aws.String(endpoint)
	}
	return &S3Store{client: s3.New(opts)}, nil
}

// Scheme returns "s3".
func (*S3Store) Scheme() string { return SchemeS3 }

// Open fetches the object.
func (s *S3Store) Open(ctx context.Context, uri URI) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(uri.Bucket),
		Key:    aws.String(uri.Key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if stderrors.As(err, &nsk) {
			return nil, errors.NewNotFoundError("object", uri.String())
		}
		return nil, errors.WrapIO("open", uri.String(), err)
	}
	return out.Body, nil
}

// Create returns a writer that uploads the object on Close.
func (s *S3Store) Create(ctx context.Context, uri URI) (io.WriteCloser, error) {
	return &bufferedWriter{upload: func(data []byte) error {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(uri.Bucket),
			Key:         aws.String(uri.Key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String("text/csv"),
		})
		return errors.WrapIO("upload", uri.String(), err)
	}}, nil
}
