// Package s3 stores cache archives in an S3 bucket or an S3-compatible
// service.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// ContentType is sent with every uploaded archive.
const ContentType = "application/gzip"

// API is the subset of the S3 client used by Store.
type API interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	manager.UploadAPIClient
}

// Store is an object store backed by an S3 bucket.
//
// Archives are stored at prefix + key + "/" + name.
type Store struct {
	client   API
	uploader *manager.Uploader
	bucket   string
	prefix   string
	logger   *slog.Logger
}

// New creates a Store for bucket.
//
// Credentials and region come from the default AWS configuration chain
// unless overridden with options.
func New(ctx context.Context, bucket string, opts ...Option) (*Store, error) {
	if bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}
	cfg := options{}
	for _, opt := range opts {
		opt(&cfg)
	}

	client := cfg.client
	if client == nil {
		c, err := newClient(ctx, &cfg)
		if err != nil {
			return nil, err
		}
		client = c
	}

	return &Store{
		client: client,
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			if cfg.partSize > 0 {
				u.PartSize = cfg.partSize
			}
		}),
		bucket: bucket,
		prefix: cfg.prefix,
		logger: cfg.logger,
	}, nil
}

func newClient(ctx context.Context, cfg *options) (*s3.Client, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.region))
	}
	if cfg.accessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.accessKeyID, cfg.secretAccessKey, cfg.sessionToken),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.pathStyle
		// Set here rather than on the loaded config, which rejects custom
		// clients when AWS_CA_BUNDLE is set.
		if cfg.httpClient != nil {
			o.HTTPClient = cfg.httpClient
		}
		if cfg.endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.endpoint)
			// Checksums only when the operation requires them.
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
			o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
		}
	}), nil
}

func (s *Store) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.New(slog.DiscardHandler)
}

// ObjectKey returns the S3 object key for (key, name).
func (s *Store) ObjectKey(key, name string) string {
	return s.prefix + key + "/" + name
}

// HeadObject reports whether an object exists for (key, name).
func (s *Store) HeadObject(ctx context.Context, key, name string) (bool, error) {
	objKey := s.ObjectKey(key, name)
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objKey),
	})
	if err == nil {
		s.log().Debug("cache object found", "bucket", s.bucket, "object", objKey)
		return true, nil
	}
	if isNotFound(err) {
		s.log().Debug("cache object not found", "bucket", s.bucket, "object", objKey)
		return false, nil
	}
	return false, fmt.Errorf("head s3://%s/%s: %w", s.bucket, objKey, err)
}

// PutObject uploads body to the object for (key, name). Large bodies are
// sent as a multipart upload.
func (s *Store) PutObject(ctx context.Context, key, name string, body io.Reader, size int64) error {
	objKey := s.ObjectKey(key, name)
	s.log().Debug("uploading cache object", "bucket", s.bucket, "object", objKey, "size", size)

	out, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objKey),
		Body:        body,
		ContentType: aws.String(ContentType),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", s.bucket, objKey, err)
	}
	s.log().Debug("uploaded cache object", "bucket", s.bucket, "object", objKey, "etag", aws.ToString(out.ETag))
	return nil
}

// isNotFound reports whether err means the object does not exist.
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
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound {
		return true
	}
	return false
}

// NormalizePrefix normalizes a key prefix so that it is empty or ends in "/".
func NormalizePrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}
