package config

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vango-dev/vroute/internal/errors"
)

// ObjectGetter is the part of *s3.Client LoadS3 needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// LoadS3 reads a route table from an S3 object. The format follows the
// key's extension. The result has no file path, so Save fails on it.
func LoadS3(ctx context.Context, client ObjectGetter, bucket, key string) (*Config, error) {
	source := fmt.Sprintf("s3://%s/%s", bucket, key)

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.New("E150").
			WithDetail("Could not fetch " + source).
			Wrap(err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.New("E150").
			WithDetail("Could not read " + source).
			Wrap(err)
	}

	cfg, err := Parse(data, FormatFor(key))
	if err != nil {
		return nil, err
	}
	cfg.source = source
	return cfg, nil
}

// S3Settings describe how to reach the bucket holding a route table.
type S3Settings struct {
	Region       string
	Endpoint     string
	UsePathStyle bool

	// AccessKeyID and SecretAccessKey are optional; requests are anonymous
	// without them.
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// NewS3Client builds an S3 client from settings.
func NewS3Client(s S3Settings) *s3.Client {
	opts := s3.Options{
		Region:       s.Region,
		UsePathStyle: s.UsePathStyle,
		Credentials:  aws.AnonymousCredentials{},
	}
	if s.Endpoint != "" {
		opts.BaseEndpoint = aws.String(s.Endpoint)
	}
	if s.AccessKeyID != "" {
		creds := aws.Credentials{
			AccessKeyID:     s.AccessKeyID,
			SecretAccessKey: s.SecretAccessKey,
			SessionToken:    s.SessionToken,
			Source:          "vroute",
		}
		opts.Credentials = aws.NewCredentialsCache(aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) { return creds, nil },
		))
	}
	return s3.New(opts)
}

var _ ObjectGetter = (*s3.Client)(nil)
