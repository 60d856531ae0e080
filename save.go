package buildcache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/meigma/buildcache/archive"
)

// Saver publishes cache entries to an object store.
type Saver struct {
	store       ObjectStore
	builder     Builder
	tempDir     string
	archiveOpts []archive.Option
	logger      *slog.Logger
}

// New creates a Saver that uploads to store.
//
// Unless WithBuilder is given, archives are created by an [archive.Builder]
// configured with WithArchiveOptions and the Saver's logger.
func New(store ObjectStore, opts ...Option) *Saver {
	s := &Saver{store: store}
	for _, opt := range opts {
		opt(s)
	}
	if s.builder == nil {
		archiveOpts := s.archiveOpts
		if s.logger != nil {
			archiveOpts = append([]archive.Option{archive.WithLogger(s.logger)}, archiveOpts...)
		}
		s.builder = archive.NewBuilder(archiveOpts...)
	}
	return s
}

// log returns the logger, falling back to a discard logger if nil.
func (s *Saver) log() *slog.Logger {
	if s.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.logger
}

// Save resolves the request, skips the save when the entry is already
// satisfied, and otherwise builds the archive and uploads it.
//
// The existence check happens before any file is expanded or written. The
// local archive is removed before Save returns, whatever the outcome; errors
// from building or uploading are returned after that cleanup.
func (s *Saver) Save(ctx context.Context, req Request) (Result, error) {
	spec, err := ResolvePathSpec(req.Record.Path, req.PathInput, true)
	if err != nil {
		return Result{}, err
	}
	key, err := ResolveKey(req.Record.Key, req.KeyInput, true)
	if err != nil {
		return Result{}, err
	}
	s.log().Debug("resolved inputs", "path", "["+strings.Join(spec, ", ")+"]", "key", key)

	res := Result{Key: key, Name: archive.Name(spec)}

	if reason := Decide(req.Record.MatchedKey, key, false); reason != SkipNone {
		s.log().Info("cache restored with this key, not saving cache", "key", key)
		return skipped(res, reason), nil
	}

	exists, err := s.store.HeadObject(ctx, key, res.Name)
	if err != nil {
		return res, fmt.Errorf("%w: check %s: %w", ErrTransientStore, key, err)
	}
	if reason := Decide(req.Record.MatchedKey, key, exists); reason != SkipNone {
		s.log().Info("cache found in object store, not saving cache", "key", key)
		return skipped(res, reason), nil
	}

	size, err := s.publish(ctx, spec, key, res.Name)
	if err != nil {
		return res, err
	}
	res.Size = size
	s.log().Info("cache saved", "key", key, "size", size)
	return res, nil
}

func skipped(res Result, reason SkipReason) Result {
	res.Skipped = true
	res.Reason = reason
	return res
}

// publish builds the archive at a private temporary path and uploads it.
// The archive is removed on every return path.
func (s *Saver) publish(ctx context.Context, spec PathSpec, key, name string) (int64, error) {
	path, err := s.allocate()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrArchiveCreation, err)
	}
	defer s.cleanup(path)

	s.log().Debug("creating archive", "path", path)
	if _, err := s.builder.Build(ctx, spec, path); err != nil {
		if errors.Is(err, ErrArchiveCreation) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %w", ErrArchiveCreation, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrArchiveCreation, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrArchiveCreation, err)
	}

	if err := s.store.PutObject(ctx, key, name, f, info.Size()); err != nil {
		return 0, fmt.Errorf("%w: %s/%s: %w", ErrUpload, key, name, err)
	}
	return info.Size(), nil
}

// allocate reserves a private file for the archive and returns its path.
func (s *Saver) allocate() (string, error) {
	dir := s.tempDir
	if dir == "" {
		dir = os.TempDir()
	}
	f, err := os.CreateTemp(dir, "buildcache-*"+archive.Extension)
	if err != nil {
		return "", fmt.Errorf("allocate archive: %w", err)
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		s.cleanup(path)
		return "", fmt.Errorf("allocate archive: %w", err)
	}
	return path, nil
}

// cleanup removes the archive. A missing file is not an error; any other
// failure is logged and otherwise ignored.
func (s *Saver) cleanup(path string) {
	s.log().Debug("deleting archive", "path", path)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.log().Debug("failed to delete archive", "path", path, "error", err)
	}
}
