// Package objectstore fetches resumes kept in an S3-compatible bucket.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/pingjob/matcher/internal/logger"
)

const (
	scheme        = "s3://"
	defaultRegion = "auto"
)

var ErrNotConfigured = errors.New("object storage is not configured")

type objectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access-key"`
	SecretKey string `mapstructure:"secret-key"`
	Bucket    string `mapstructure:"bucket"`
}

type Store struct {
	client objectGetter
	bucket string
	logger *zap.Logger
}

// New builds a Store from cfg. Static credentials are used when both keys are set,
// otherwise the default AWS credential chain applies. A custom endpoint targets
// S3-compatible services such as Cloudflare R2.
func New(ctx context.Context, cfg Config, log *zap.Logger) (*Store, error) {
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = defaultRegion
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return newStore(client, cfg.Bucket, log), nil
}

func newStore(client objectGetter, bucket string, log *zap.Logger) *Store {
	return &Store{
		client: client,
		bucket: strings.TrimSpace(bucket),
		logger: logger.WithFields(log),
	}
}

// IsRemote reports whether ref points into object storage rather than the local disk.
func IsRemote(ref string) bool {
	return strings.HasPrefix(strings.TrimSpace(ref), scheme)
}

// ParseURI splits s3://bucket/key. An empty bucket (s3:///key) selects defaultBucket.
func ParseURI(ref, defaultBucket string) (bucket, key string, err error) {
	ref = strings.TrimSpace(ref)
	if !strings.HasPrefix(ref, scheme) {
		return "", "", fmt.Errorf("object reference %q must start with %s", ref, scheme)
	}

	rest := strings.TrimPrefix(ref, scheme)
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" {
		bucket = defaultBucket
	}

	if bucket == "" {
		return "", "", fmt.Errorf("object reference %q has no bucket", ref)
	}
	if key == "" {
		return "", "", fmt.Errorf("object reference %q has no key", ref)
	}

	return bucket, key, nil
}

// Download returns the body of the object at bucket/key.
func (s *Store) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	if s == nil || s.client == nil {
		return nil, ErrNotConfigured
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, out.Body); err != nil {
		return nil, fmt.Errorf("read object %s/%s: %w", bucket, key, err)
	}

	s.logger.Debug("object downloaded",
		zap.String("bucket", bucket),
		zap.String("key", key),
		zap.Int("size", buf.Len()),
	)

	return buf.Bytes(), nil
}

// Fetch downloads ref into a temporary file that keeps the object's extension and
// returns its path. The caller removes the file with the returned cleanup func.
func (s *Store) Fetch(ctx context.Context, ref string) (string, func(), error) {
	if s == nil {
		return "", nil, ErrNotConfigured
	}

	bucket, key, err := ParseURI(ref, s.bucket)
	if err != nil {
		return "", nil, err
	}

	data, err := s.Download(ctx, bucket, key)
	if err != nil {
		return "", nil, err
	}

	file, err := os.CreateTemp("", "resume_*"+path.Ext(key))
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	defer file.Close()

	cleanup := func() { _ = os.Remove(file.Name()) }

	if _, err := file.Write(data); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("write temp file: %w", err)
	}

	return file.Name(), cleanup, nil
}
