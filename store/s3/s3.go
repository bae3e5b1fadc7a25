// Package s3 reads session logs from an S3 (or S3-compatible) bucket.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/sonnes/sessionview/core"
	"github.com/sonnes/sessionview/store"
)

// Config selects the bucket. Bucket and Region are required.
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string // optional, for S3-compatible services
	PathStyle bool
}

// Validate reports missing required settings.
func (c Config) Validate() error {
	var errs []error
	if c.Bucket == "" {
		errs = append(errs, errors.New("s3 bucket is required"))
	}
	if c.Region == "" {
		errs = append(errs, errors.New("s3 region is required"))
	}
	return errors.Join(errs...)
}

// API is the subset of the S3 client the store calls.
type API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Store is a store.Store backed by one bucket.
type Store struct {
	client API
	bucket string
}

var _ store.Store = (*Store)(nil)

// New validates cfg, loads AWS credentials from the default chain, and
// returns a Store. It fails before any network call when cfg is incomplete.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})
	return NewWithClient(client, cfg.Bucket), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client API, bucket string) *Store {
	return &Store{client: client, bucket: bucket}
}

// List implements store.Store, following continuation tokens until the
// listing is exhausted. Pages without contents contribute nothing.
func (s *Store) List(ctx context.Context, prefix string) ([]store.Object, error) {
	in := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket)}
	if prefix != "" {
		in.Prefix = aws.String(prefix)
	}

	out := []store.Object{}
	pages := s3.NewListObjectsV2Paginator(s.client, in)
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, &core.StoreError{Op: "list", Key: prefix, Err: err}
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			out = append(out, store.Object{Key: *obj.Key, LastModified: obj.LastModified})
		}
	}
	return out, nil
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("get %q: %w", key, errors.Join(core.ErrNotFound, err))
		}
		return nil, &core.StoreError{Op: "get", Key: key, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &core.StoreError{Op: "get", Key: key, Err: err}
	}
	return data, nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
