//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/registry/remote"

	"github.com/meigma/buildcache"
	"github.com/meigma/buildcache/internal/ociclient"
	"github.com/meigma/buildcache/store/oci"
	"github.com/meigma/buildcache/store/s3"
)

func saveRequest(dir, key string) buildcache.Request {
	return buildcache.Request{
		PathInput: filepath.Join(dir, "node_modules") + "\n" + filepath.Join(dir, "dist", "*.js"),
		KeyInput:  key,
	}
}

func assertProjectArchive(t *testing.T, dir string, files map[string][]byte) {
	t.Helper()
	for _, rel := range []string{"node_modules/left-pad/index.js", "node_modules/left-pad/pkg.json", "dist/app.js"} {
		name := filepath.ToSlash(filepath.Join(dir, rel))
		assert.Equal(t, projectFiles[rel], files[name], "content of %s", rel)
	}
	_, ok := files[filepath.ToSlash(filepath.Join(dir, "src/main.ts"))]
	assert.False(t, ok, "unmatched file archived")
}

func TestSave_OCI(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	addr := getRegistry(t)
	repo := addr + "/buildcache/save-oci"

	store, err := oci.New(repo, oci.WithClientOptions(ociclient.WithPlainHTTP(true), ociclient.WithAnonymous()))
	require.NoError(t, err)

	dir := t.TempDir()
	createTestFiles(t, dir, projectFiles)
	tmp := t.TempDir()
	saver := buildcache.New(store, buildcache.WithTempDir(tmp))

	res, err := saver.Save(ctx, saveRequest(dir, "npm-linux-1"))
	require.NoError(t, err)
	require.False(t, res.Skipped)

	t.Run("artifact holds the archive", func(t *testing.T) {
		r, err := remote.NewRepository(repo)
		require.NoError(t, err)
		r.PlainHTTP = true

		_, rc, err := r.FetchReference(ctx, oci.Tag(res.Key, res.Name))
		require.NoError(t, err)
		var m ocispec.Manifest
		require.NoError(t, json.NewDecoder(rc).Decode(&m))
		require.NoError(t, rc.Close())

		require.Len(t, m.Layers, 1)
		assert.Equal(t, res.Size, m.Layers[0].Size)
		assert.Equal(t, "npm-linux-1", m.Annotations[oci.AnnotationKey])

		data, err := content.FetchAll(ctx, r, m.Layers[0])
		require.NoError(t, err)
		assertProjectArchive(t, dir, readArchive(t, bytes.NewReader(data)))
	})

	t.Run("second save is skipped", func(t *testing.T) {
		again, err := saver.Save(ctx, saveRequest(dir, "npm-linux-1"))
		require.NoError(t, err)
		assert.True(t, again.Skipped)
		assert.Equal(t, buildcache.SkipExists, again.Reason)
	})
}

func TestSave_S3(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	endpoint := getMinIO(t)
	raw := newS3Client(endpoint)
	bucket := createBucket(t, raw, "save-s3")

	store, err := s3.New(ctx, bucket,
		s3.WithEndpoint(endpoint),
		s3.WithPathStyle(true),
		s3.WithRegion(minioRegion),
		s3.WithStaticCredentials(minioUser, minioPassword, ""),
		s3.WithPrefix("ci"),
	)
	require.NoError(t, err)

	dir := t.TempDir()
	createTestFiles(t, dir, projectFiles)
	saver := buildcache.New(store, buildcache.WithTempDir(t.TempDir()))

	res, err := saver.Save(ctx, saveRequest(dir, "npm-linux-1"))
	require.NoError(t, err)
	require.False(t, res.Skipped)

	out, err := raw.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(store.ObjectKey(res.Key, res.Name)),
	})
	require.NoError(t, err)
	defer out.Body.Close()
	assert.Equal(t, s3.ContentType, aws.ToString(out.ContentType))
	assertProjectArchive(t, dir, readArchive(t, out.Body))

	again, err := saver.Save(ctx, saveRequest(dir, "npm-linux-1"))
	require.NoError(t, err)
	assert.True(t, again.Skipped)
	assert.Equal(t, buildcache.SkipExists, again.Reason)
}

func TestSave_S3_MissingBucket(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	endpoint := getMinIO(t)

	store, err := s3.New(ctx, "no-such-bucket",
		s3.WithEndpoint(endpoint),
		s3.WithPathStyle(true),
		s3.WithRegion(minioRegion),
		s3.WithStaticCredentials(minioUser, minioPassword, ""),
	)
	require.NoError(t, err)

	dir := t.TempDir()
	createTestFiles(t, dir, projectFiles)
	saver := buildcache.New(store, buildcache.WithTempDir(t.TempDir()))

	// MinIO answers HEAD on a missing bucket with 404, so the upload is
	// attempted and fails.
	_, err = saver.Save(ctx, saveRequest(dir, "k"))
	require.ErrorIs(t, err, buildcache.ErrUpload)
}
