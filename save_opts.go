package buildcache

import (
	"log/slog"

	"github.com/meigma/buildcache/archive"
)

// Option configures a Saver.
type Option func(*Saver)

// WithLogger sets the logger for save progress and diagnostics.
// The logger is also passed to the default archive builder.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Saver) {
		s.logger = logger
	}
}

// WithBuilder replaces the archive builder.
func WithBuilder(b Builder) Option {
	return func(s *Saver) {
		s.builder = b
	}
}

// WithTempDir sets the directory for the transient local archive.
// An empty dir selects the platform default.
func WithTempDir(dir string) Option {
	return func(s *Saver) {
		s.tempDir = dir
	}
}

// WithArchiveOptions configures the default archive builder.
// It has no effect when WithBuilder is used.
func WithArchiveOptions(opts ...archive.Option) Option {
	return func(s *Saver) {
		s.archiveOpts = append(s.archiveOpts, opts...)
	}
}
