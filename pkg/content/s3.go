package content

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config configures an [S3Store].
type S3Config struct {
	Endpoint  string `json:"endpoint" jsonschema:"title=Endpoint"`
	Region    string `json:"region,omitempty" jsonschema:"title=Region"`
	Bucket    string `json:"bucket" jsonschema:"title=Bucket"`
	Prefix    string `json:"prefix,omitempty" jsonschema:"title=Key Prefix"`
	AccessKey string `json:"accessKey,omitempty" jsonschema:"title=Access Key"`
	SecretKey string `json:"secretKey,omitempty" jsonschema:"title=Secret Key"`
	UseSSL    bool   `json:"useSSL,omitempty" jsonschema:"title=Use SSL"`
}

// S3Store reads documents from an S3-compatible bucket, at object keys of
// the form {prefix}/{revision}/{path}.
type S3Store struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewS3Store creates a new [S3Store]. Anonymous access is used when no
// credentials are configured.
func NewS3Store(cfg S3Config) (*S3Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("%w: s3 endpoint is required", ErrStoreMisconfig)
	}

	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("%w: s3 bucket is required", ErrStoreMisconfig)
	}

	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	creds := credentials.NewStaticV4(strings.TrimSpace(cfg.AccessKey), strings.TrimSpace(cfg.SecretKey), "")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  creds,
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	return &S3Store{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// ObjectKey returns the object key of the document.
func (s *S3Store) ObjectKey(revision, p string) string {
	return path.Join(s.prefix, revision, strings.TrimPrefix(p, "/"))
}

func (s *S3Store) Get(ctx context.Context, revision, p string) ([]byte, error) {
	key := s.ObjectKey(revision, p)

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %q: %w", key, err)
	}
	defer obj.Close() //nolint:errcheck // Read-only.

	data, err := readLimited(obj)
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NoSuchBucket" {
			return nil, fmt.Errorf("%w: s3://%s/%s", ErrNotFound, s.bucket, key)
		}

		return nil, fmt.Errorf("get object %q: %w", key, err)
	}

	return data, nil
}
