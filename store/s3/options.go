package s3

import (
	"log/slog"
	"net/http"
)

type options struct {
	client          API
	httpClient      *http.Client
	prefix          string
	region          string
	endpoint        string
	pathStyle       bool
	accessKeyID     string
	secretAccessKey string
	sessionToken    string
	partSize        int64
	logger          *slog.Logger
}

// Option configures a Store.
type Option func(*options)

// WithClient uses api instead of building an S3 client. Region, endpoint,
// credential, and HTTP client options are then ignored.
func WithClient(api API) Option {
	return func(o *options) {
		o.client = api
	}
}

// WithPrefix places every object under prefix. A trailing "/" is added when
// missing.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = NormalizePrefix(prefix)
	}
}

// WithRegion sets the AWS region.
func WithRegion(region string) Option {
	return func(o *options) {
		o.region = region
	}
}

// WithEndpoint sends requests to an S3-compatible endpoint such as MinIO.
func WithEndpoint(endpoint string) Option {
	return func(o *options) {
		o.endpoint = endpoint
	}
}

// WithPathStyle addresses the bucket in the URL path instead of the host.
func WithPathStyle(enabled bool) Option {
	return func(o *options) {
		o.pathStyle = enabled
	}
}

// WithStaticCredentials uses fixed credentials instead of the default chain.
func WithStaticCredentials(accessKeyID, secretAccessKey, sessionToken string) Option {
	return func(o *options) {
		o.accessKeyID = accessKeyID
		o.secretAccessKey = secretAccessKey
		o.sessionToken = sessionToken
	}
}

// WithHTTPClient sets the HTTP client used by the S3 client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// WithPartSize sets the multipart upload part size in bytes.
func WithPartSize(n int64) Option {
	return func(o *options) {
		o.partSize = n
	}
}

// WithLogger sets the logger for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}
