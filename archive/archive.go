// Package archive builds the gzip-compressed tar archive that holds a cache entry.
//
// Path patterns are expanded by [glob.Expand] unless another [Expander] is
// configured. Matched paths are stored exactly as written, so absolute
// patterns produce absolute entry names and relative patterns produce names
// relative to the working directory. Matched directories are archived with
// their contents and symbolic links are stored as links.
package archive

import (
	"context"
	_ "crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/opencontainers/go-digest"

	"github.com/meigma/buildcache/archive/glob"
)

// Extension is the file extension of every archive.
const Extension = ".tar.gz"

// nameHashLen is the number of hex digits of the path digest used in names.
const nameHashLen = 32

// Name derives the archive name for a path spec.
//
// The name depends only on the patterns and their order, so the restore and
// save phases of a run agree on it.
func Name(spec []string) string {
	d := digest.FromString(strings.Join(spec, "\n"))
	return "cache-" + d.Encoded()[:nameHashLen] + Extension
}

// Expander turns path patterns into the concrete paths to archive.
type Expander interface {
	Expand(ctx context.Context, patterns []string) ([]string, error)
}

// ExpanderFunc adapts a function to the Expander interface.
type ExpanderFunc func(ctx context.Context, patterns []string) ([]string, error)

// Expand calls f.
func (f ExpanderFunc) Expand(ctx context.Context, patterns []string) ([]string, error) {
	return f(ctx, patterns)
}

// Builder creates archives from path specs.
type Builder struct {
	expander Expander
	level    int
	strict   bool
	progress ProgressFunc
	logger   *slog.Logger
}

// NewBuilder creates a Builder with the given options.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{level: gzip.DefaultCompression}
	for _, opt := range opts {
		opt(b)
	}
	if b.expander == nil {
		b.expander = ExpanderFunc(glob.Expand)
	}
	return b
}

// log returns the logger, falling back to a discard logger if nil.
func (b *Builder) log() *slog.Logger {
	if b.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.logger
}

// reportProgress sends a progress event if a callback is configured.
func (b *Builder) reportProgress(stage ProgressStage, path string, entries int, bytesIn uint64) {
	if b.progress == nil {
		return
	}
	b.progress(ProgressEvent{Stage: stage, Path: path, Entries: entries, BytesIn: bytesIn})
}

// Build expands spec and writes the archive to dst, replacing any existing
// file. It returns the size of the written archive.
//
// Build returns an error wrapping ErrNoMatches when nothing matches. A
// partially written dst is left in place for the caller to remove.
func (b *Builder) Build(ctx context.Context, spec []string, dst string) (int64, error) {
	b.reportProgress(StageExpanding, "", 0, 0)
	paths, err := b.expander.Expand(ctx, spec)
	if err != nil {
		return 0, fmt.Errorf("expand paths: %w", err)
	}
	if len(paths) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNoMatches, strings.Join(spec, ", "))
	}
	b.log().Debug("expanded paths", "patterns", len(spec), "matches", len(paths))

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return 0, fmt.Errorf("create archive: %w", err)
	}

	w, err := b.newWriter(f, dst)
	if err != nil {
		f.Close()
		return 0, err
	}
	for _, p := range paths {
		if err := w.add(ctx, p); err != nil {
			f.Close()
			return 0, err
		}
	}
	if err := w.close(); err != nil {
		f.Close()
		return 0, fmt.Errorf("finish archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close archive: %w", err)
	}

	size := w.out.N
	b.reportProgress(StageDone, "", w.entries, w.bytesIn)
	b.log().Debug("archive written", "entries", w.entries, "bytes_in", w.bytesIn, "size", size)
	return int64(size), nil //nolint:gosec // archive size fits in int64
}
