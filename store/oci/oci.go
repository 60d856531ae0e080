// Package oci stores cache archives in an OCI registry.
//
// Each archive becomes a single-layer artifact. The (key, name) address is
// hashed into a tag, so any cache key is accepted regardless of the
// registry's tag grammar. The original key and name are kept as manifest
// annotations.
package oci

import (
	"bytes"
	"context"
	_ "crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/opencontainers/image-spec/specs-go"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/meigma/buildcache/internal/ociclient"
)

// OCI media types and annotations used for cache artifacts.
const (
	ArtifactType     = "application/vnd.meigma.buildcache.v1"
	MediaTypeArchive = "application/vnd.meigma.buildcache.archive.v1.tar+gzip"

	AnnotationKey  = "dev.meigma.buildcache.key"
	AnnotationName = "dev.meigma.buildcache.name"
)

// Client is the subset of the registry client used by Store.
type Client interface {
	Resolve(ctx context.Context, repoRef, ref string) (ocispec.Descriptor, error)
	PushBlob(ctx context.Context, repoRef string, desc *ocispec.Descriptor, r io.Reader) error
	PushManifest(ctx context.Context, repoRef, tag string, manifest *ocispec.Manifest) (ocispec.Descriptor, error)
}

// Store is an object store backed by one registry repository.
type Store struct {
	client Client
	repo   string
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Store for repository, such as "ghcr.io/acme/cache".
//
// Without WithClient, a registry client is built from the ociclient options
// given through WithClientOptions.
func New(repository string, opts ...Option) (*Store, error) {
	repo, err := ociclient.ParseRepository(repository)
	if err != nil {
		return nil, err
	}
	cfg := options{}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Store{
		client: cfg.client,
		repo:   repo,
		logger: cfg.logger,
		now:    time.Now,
	}
	if s.client == nil {
		s.client = ociclient.New(cfg.clientOpts...)
	}
	return s, nil
}

func (s *Store) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.New(slog.DiscardHandler)
}

// Tag returns the registry tag that addresses (key, name).
func Tag(key, name string) string {
	return digest.FromString(key + "\x00" + name).Encoded()
}

// HeadObject reports whether the tag for (key, name) exists.
func (s *Store) HeadObject(ctx context.Context, key, name string) (bool, error) {
	tag := Tag(key, name)
	desc, err := s.client.Resolve(ctx, s.repo, tag)
	if errors.Is(err, ociclient.ErrNotFound) {
		s.log().Debug("cache artifact not found", "repository", s.repo, "tag", tag)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("resolve %s:%s: %w", s.repo, tag, err)
	}
	s.log().Debug("cache artifact found", "repository", s.repo, "tag", tag, "digest", desc.Digest)
	return true, nil
}

// PutObject pushes body as the layer of a new artifact tagged for (key, name).
//
// The layer digest is computed before upload. A seekable body is hashed and
// rewound; any other body is buffered in memory.
func (s *Store) PutObject(ctx context.Context, key, name string, body io.Reader, size int64) error {
	layer, content, err := describe(body, size)
	if err != nil {
		return err
	}

	config := ocispec.DescriptorEmptyJSON
	if err := s.client.PushBlob(ctx, s.repo, &config, bytes.NewReader(config.Data)); err != nil {
		return fmt.Errorf("push config: %w", err)
	}
	config.Data = nil

	s.log().Debug("pushing archive layer", "repository", s.repo, "digest", layer.Digest, "size", layer.Size)
	if err := s.client.PushBlob(ctx, s.repo, &layer, content); err != nil {
		return fmt.Errorf("push layer: %w", err)
	}

	tag := Tag(key, name)
	manifest := s.manifest(config, layer, key, name)
	desc, err := s.client.PushManifest(ctx, s.repo, tag, &manifest)
	if err != nil {
		return fmt.Errorf("push manifest: %w", err)
	}
	s.log().Debug("pushed cache artifact", "repository", s.repo, "tag", tag, "digest", desc.Digest)
	return nil
}

func (s *Store) manifest(config, layer ocispec.Descriptor, key, name string) ocispec.Manifest {
	return ocispec.Manifest{
		Versioned:    specs.Versioned{SchemaVersion: 2},
		MediaType:    ocispec.MediaTypeImageManifest,
		ArtifactType: ArtifactType,
		Config:       config,
		Layers:       []ocispec.Descriptor{layer},
		Annotations: map[string]string{
			AnnotationKey:             key,
			AnnotationName:            name,
			ocispec.AnnotationTitle:   name,
			ocispec.AnnotationCreated: s.now().UTC().Format(time.RFC3339),
		},
	}
}

// describe computes the layer descriptor for body and returns a reader
// positioned at the start of its content.
func describe(body io.Reader, size int64) (ocispec.Descriptor, io.Reader, error) {
	if size < 0 {
		return ocispec.Descriptor{}, nil, fmt.Errorf("invalid archive size %d", size)
	}

	var (
		d       digest.Digest
		content io.Reader
	)
	if rs, ok := body.(io.ReadSeeker); ok {
		start, err := rs.Seek(0, io.SeekCurrent)
		if err != nil {
			return ocispec.Descriptor{}, nil, fmt.Errorf("seek archive: %w", err)
		}
		dg := digest.SHA256.Digester()
		n, err := io.Copy(dg.Hash(), io.LimitReader(rs, size))
		if err != nil {
			return ocispec.Descriptor{}, nil, fmt.Errorf("hash archive: %w", err)
		}
		if n != size {
			return ocispec.Descriptor{}, nil, fmt.Errorf("hash archive: got %d bytes, want %d", n, size)
		}
		if _, err := rs.Seek(start, io.SeekStart); err != nil {
			return ocispec.Descriptor{}, nil, fmt.Errorf("rewind archive: %w", err)
		}
		d = dg.Digest()
		content = io.LimitReader(rs, size)
	} else {
		data, err := io.ReadAll(io.LimitReader(body, size))
		if err != nil {
			return ocispec.Descriptor{}, nil, fmt.Errorf("read archive: %w", err)
		}
		if int64(len(data)) != size {
			return ocispec.Descriptor{}, nil, fmt.Errorf("read archive: got %d bytes, want %d", len(data), size)
		}
		d = digest.FromBytes(data)
		content = bytes.NewReader(data)
	}

	return ocispec.Descriptor{
		MediaType: MediaTypeArchive,
		Digest:    d,
		Size:      size,
	}, content, nil
}
