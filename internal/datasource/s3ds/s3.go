// Package s3ds implements an S3-backed object source on aws-sdk-go-v2. Keys
// are s3://bucket/key URIs.
package s3ds

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/adespotakis/data-engineering-part2-redshift/internal/datasource"
)

// API is the subset of *s3.Client the source uses.
type API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Config holds S3 connection settings.
type Config struct {
	// Region is the AWS region of the bucket.
	Region string
	// Endpoint is an optional custom endpoint (MinIO, LocalStack). Setting it
	// also enables path-style addressing.
	Endpoint string
}

// Source lists and reads objects from S3.
type Source struct {
	client API
}

var _ datasource.ObjectSource = (*Source)(nil)

// New loads the default AWS credential chain and returns a Source.
func New(ctx context.Context, cfg Config) (*Source, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}
	return &Source{client: s3.NewFromConfig(awsCfg, s3Opts...)}, nil
}

// NewWithClient returns a Source over a pre-configured client.
func NewWithClient(client API) *Source { return &Source{client: client} }

// List returns every object under prefix as s3://bucket/key, sorted.
// "Directory" placeholder keys (ending in /) are skipped.
func (s *Source) List(ctx context.Context, prefix string) ([]string, error) {
	bucket, keyPrefix, err := Split(prefix)
	if err != nil {
		return nil, err
	}

	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(keyPrefix),
	})
	var out []string
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if key == "" || strings.HasSuffix(key, "/") {
				continue
			}
			out = append(out, "s3://"+bucket+"/"+key)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Open returns the body of the object at uri.
func (s *Source) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	bucket, key, err := Split(uri)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", uri, err)
	}
	return out.Body, nil
}

// Split parses s3://bucket/key into its parts. The key may be empty.
func Split(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 uri: %q", uri)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("s3 uri without bucket: %q", uri)
	}
	return bucket, key, nil
}
