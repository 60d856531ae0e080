package oci

import (
	"log/slog"

	"github.com/meigma/buildcache/internal/ociclient"
)

type options struct {
	client     Client
	clientOpts []ociclient.Option
	logger     *slog.Logger
}

// Option configures a Store.
type Option func(*options)

// WithClient uses c instead of building a registry client.
func WithClient(c Client) Option {
	return func(o *options) {
		o.client = c
	}
}

// WithClientOptions passes options to the registry client built by New.
func WithClientOptions(opts ...ociclient.Option) Option {
	return func(o *options) {
		o.clientOpts = append(o.clientOpts, opts...)
	}
}

// WithLogger sets the logger for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}
