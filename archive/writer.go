package archive

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/meigma/buildcache/archive/internal/platform"
)

// countingWriter wraps a writer and counts bytes written.
type countingWriter struct {
	W io.Writer
	N uint64
}

// Write implements io.Writer.
func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.W.Write(p)
	cw.N += uint64(n) //nolint:gosec // n is non-negative by io.Writer contract
	return n, err
}

// writer holds state for one archive.
type writer struct {
	b    *Builder
	out  *countingWriter
	gz   *gzip.Writer
	tw   *tar.Writer
	self fs.FileInfo
	seen map[string]struct{}
	buf  []byte

	entries int
	bytesIn uint64
}

func (b *Builder) newWriter(f *os.File, dst string) (*writer, error) {
	self, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat archive %s: %w", dst, err)
	}
	out := &countingWriter{W: f}
	gz, err := gzip.NewWriterLevel(out, b.level)
	if err != nil {
		return nil, fmt.Errorf("create gzip writer: %w", err)
	}
	return &writer{
		b:    b,
		out:  out,
		gz:   gz,
		tw:   tar.NewWriter(gz),
		self: self,
		seen: make(map[string]struct{}),
		buf:  make([]byte, 32*1024),
	}, nil
}

// add writes root and, when root is a directory, everything below it.
// Symbolic links are never followed.
func (w *writer) add(ctx context.Context, root string) error {
	info, err := os.Lstat(root)
	if err != nil {
		return fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return w.addEntry(ctx, root, info)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		return w.addEntry(ctx, path, info)
	})
}

// addEntry writes a single header and, for regular files, its content.
func (w *writer) addEntry(ctx context.Context, path string, info fs.FileInfo) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name := filepath.ToSlash(path)
	if info.IsDir() && !strings.HasSuffix(name, "/") {
		name += "/"
	}
	if _, ok := w.seen[name]; ok {
		return nil
	}
	w.seen[name] = struct{}{}

	mode := info.Mode()
	switch {
	case os.SameFile(info, w.self):
		w.b.log().Debug("skipped archive file", "path", path)
		return nil
	case mode&fs.ModeSocket != 0:
		w.b.log().Debug("skipped socket", "path", path)
		return nil
	}

	var link string
	if mode&fs.ModeSymlink != 0 {
		target, err := os.Readlink(path)
		if err != nil {
			return fmt.Errorf("read link %s: %w", path, err)
		}
		link = target
	}

	hdr, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return fmt.Errorf("header for %s: %w", path, err)
	}
	hdr.Name = name
	if err := w.tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write header %s: %w", path, err)
	}

	if mode.IsRegular() {
		if err := w.copyFile(path, info, hdr.Size); err != nil {
			return err
		}
	}

	w.entries++
	w.b.reportProgress(StageArchiving, path, w.entries, w.bytesIn)
	return nil
}

// copyFile streams exactly size bytes of path into the archive.
func (w *writer) copyFile(path string, info fs.FileInfo, size int64) error {
	f, err := platform.OpenNoFollow(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	n, err := io.CopyBuffer(w.tw, io.LimitReader(f, size), w.buf)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if n != size {
		return fmt.Errorf("write %s: file shrank during archive creation", path)
	}
	w.bytesIn += uint64(n) //nolint:gosec // n is non-negative

	if w.b.strict {
		if err := platform.CheckUnchanged(f, path, info); err != nil {
			return err
		}
	}
	return nil
}

// close flushes the tar and gzip streams.
func (w *writer) close() error {
	if err := w.tw.Close(); err != nil {
		return err
	}
	return w.gz.Close()
}
