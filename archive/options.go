package archive

import (
	"log/slog"

	"github.com/klauspost/compress/gzip"
)

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger used during archive creation.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// WithCompressionLevel sets the gzip level, from gzip.HuffmanOnly to
// gzip.BestCompression. The default is gzip.DefaultCompression.
func WithCompressionLevel(level int) Option {
	return func(b *Builder) {
		b.level = level
	}
}

// WithExpander replaces the pattern expander.
func WithExpander(e Expander) Option {
	return func(b *Builder) {
		b.expander = e
	}
}

// WithProgress sets a callback for progress events.
func WithProgress(fn ProgressFunc) Option {
	return func(b *Builder) {
		b.progress = fn
	}
}

// WithChangeDetection makes the builder verify that each regular file did
// not change while it was being read. It costs an extra stat per file.
func WithChangeDetection(enabled bool) Option {
	return func(b *Builder) {
		b.strict = enabled
	}
}

// ValidCompressionLevel reports whether level is accepted by WithCompressionLevel.
func ValidCompressionLevel(level int) bool {
	return level >= gzip.HuffmanOnly && level <= gzip.BestCompression
}
