package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"golang.org/x/sync/singleflight"

	"github.com/agenthands/ontograph/internal/core/errs"
)

type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads datasets from an S3 bucket or an S3-compatible store. Open
// always fetches; ForRun returns a view that fetches each object once, since
// the pipeline reads every file twice (hash, then rows).
type S3Source struct {
	bucket string
	prefix string
	client s3API
}

type S3Params struct {
	Bucket    string
	Prefix    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

func NewS3Source(ctx context.Context, p S3Params) (*S3Source, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(p.Region)}
	if p.Endpoint != "" {
		opts = append(opts, awsconfig.WithBaseEndpoint(p.Endpoint))
	}
	if p.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(p.AccessKey, p.SecretKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	return newS3Source(p.Bucket, p.Prefix, client), nil
}

func newS3Source(bucket, prefix string, client s3API) *S3Source {
	return &S3Source{bucket: bucket, prefix: prefix, client: client}
}

func (s *S3Source) String() string {
	return "s3://" + path.Join(s.bucket, s.prefix)
}

func (s *S3Source) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	body, err := s.fetch(ctx, name)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

// ForRun returns a view caching objects until release is called. Objects
// changed in the bucket between runs are fetched again.
func (s *S3Source) ForRun() (Source, func()) {
	v := &s3RunView{src: s, cache: make(map[string][]byte)}
	return v, v.release
}

func (s *S3Source) fetch(ctx context.Context, name string) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	key := path.Join(s.prefix, name)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, &errs.NotFoundError{Kind: "dataset", Name: name}
		}
		return nil, fmt.Errorf("failed to get %s from S3: %w", key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return body, nil
}

type s3RunView struct {
	src *S3Source

	mu    sync.RWMutex
	cache map[string][]byte
	group singleflight.Group
}

func (v *s3RunView) String() string { return v.src.String() }

func (v *s3RunView) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	v.mu.RLock()
	data, ok := v.cache[name]
	v.mu.RUnlock()
	if ok {
		return io.NopCloser(bytes.NewReader(data)), nil
	}

	res, err, _ := v.group.Do(name, func() (interface{}, error) {
		body, err := v.src.fetch(ctx, name)
		if err != nil {
			return nil, err
		}
		v.mu.Lock()
		if v.cache != nil {
			v.cache[name] = body
		}
		v.mu.Unlock()
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(res.([]byte))), nil
}

func (v *s3RunView) release() {
	v.mu.Lock()
	v.cache = nil
	v.mu.Unlock()
}
