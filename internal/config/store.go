package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/meigma/buildcache"
	"github.com/meigma/buildcache/internal/ociclient"
	"github.com/meigma/buildcache/store/memstore"
	"github.com/meigma/buildcache/store/oci"
	"github.com/meigma/buildcache/store/s3"
)

// OpenStore builds the object store selected by c.
func (c *Config) OpenStore(ctx context.Context, logger *slog.Logger) (buildcache.ObjectStore, error) {
	backend := c.Backend
	if c.DryRun {
		backend = BackendMemory
	}
	logger = logger.With("backend", backend)

	switch backend {
	case BackendS3:
		return s3.New(ctx, c.S3.Bucket,
			s3.WithPrefix(c.S3.Prefix),
			s3.WithRegion(c.S3.Region),
			s3.WithEndpoint(c.S3.Endpoint),
			s3.WithPathStyle(c.S3.ForcePathStyle),
			s3.WithLogger(logger),
		)
	case BackendOCI:
		clientOpts := []ociclient.Option{ociclient.WithPlainHTTP(c.OCI.PlainHTTP)}
		if c.OCI.Username != "" {
			clientOpts = append(clientOpts, ociclient.WithStaticCredentials(c.OCI.Repository, c.OCI.Username, c.OCI.Password))
		} else {
			clientOpts = append(clientOpts, ociclient.WithDockerConfig())
		}
		return oci.New(c.OCI.Repository, oci.WithClientOptions(clientOpts...), oci.WithLogger(logger))
	case BackendMemory:
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, backend)
	}
}
