package docsource

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
)

type s3Config struct {
	Endpoint     string `json:"endpoint"`
	SecretID     string `json:"secret_id"`
	SecretKey    string `json:"secret_key"`
	Bucket       string `json:"bucket"`
	Region       string `json:"region"`
	Prefix       string `json:"prefix"`
	UsePathStyle bool   `json:"use_path_style"`
}

// objectAPI is the subset of the s3 client used here.
type objectAPI interface {
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type s3Source struct {
	client objectAPI
	bucket string
	prefix string
}

func init() {
	Register("s3", createS3Source)
}

func createS3Source(args interface{}) (Source, error) {
	cfg := &s3Config{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: s3 source bucket is required", appErr.ErrConfiguration)
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.SecretID != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.SecretID, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: load aws config: %v", appErr.ErrConfiguration, err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return newS3Source(client, cfg.Bucket, cfg.Prefix), nil
}

func newS3Source(client objectAPI, bucket, prefix string) *s3Source {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &s3Source{client: client, bucket: bucket, prefix: prefix}
}

func (s *s3Source) Type() string {
	return "s3"
}

func (s *s3Source) Location() string {
	return "s3://" + path.Join(s.bucket, s.prefix)
}

// List returns the objects directly under the prefix. Nested keys are not
// part of the corpus, matching the local directory source.
func (s *s3Source) List(ctx context.Context) (*ListResult, error) {
	var names []string
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(s.prefix),
		Delimiter: aws.String("/"),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3 objects: %w", err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), s.prefix)
			if !validName(name) {
				continue
			}
			names = append(names, name)
		}
	}
	return &ListResult{Files: filterAndSort(names)}, nil
}

func (s *s3Source) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if !validName(name) {
		return nil, fmt.Errorf("invalid document name: %q", name)
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + name),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3 object: %w", err)
	}
	return out.Body, nil
}
