package s3

import (
	"context"
	"encoding/pem"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 serves path-style HEAD and PUT requests for one bucket.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]string
	headErr int
	puts    []*http.Request
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/bucket/")
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodHead:
		if f.headErr != 0 {
			w.WriteHeader(f.headErr)
			return
		}
		if _, ok := f.objects[key]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case http.MethodPut:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.objects[key] = string(body)
		f.puts = append(f.puts, r)
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeS3) put(key, data string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
}

func (f *fakeS3) failHead(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.headErr = status
}

func newTestStore(t *testing.T, opts ...Option) (*Store, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: make(map[string]string)}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	opts = append([]Option{
		WithEndpoint(srv.URL),
		WithPathStyle(true),
		WithRegion("us-east-1"),
		WithStaticCredentials("AKIDEXAMPLE", "secret", ""),
		WithHTTPClient(srv.Client()),
	}, opts...)
	s, err := New(context.Background(), "bucket", opts...)
	require.NoError(t, err)
	return s, fake
}

func TestNew_RequiresBucket(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), "")
	require.Error(t, err)
}

func TestStore_ObjectKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		prefix string
		want   string
	}{
		{prefix: "", want: "k/../v1/cache.tar.gz"},
		{prefix: "ci", want: "ci/k/../v1/cache.tar.gz"},
		{prefix: "/ci/cache/", want: "ci/cache/k/../v1/cache.tar.gz"},
	}
	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			t.Parallel()
			s, err := New(context.Background(), "bucket", WithPrefix(tt.prefix), WithRegion("us-east-1"),
				WithStaticCredentials("a", "b", ""))
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.ObjectKey("k/../v1", "cache.tar.gz"), "key is used verbatim")
		})
	}
}

func TestStore_HeadObject(t *testing.T) {
	t.Parallel()

	s, fake := newTestStore(t, WithPrefix("cache"))
	fake.put("cache/abc/cache-1.tar.gz", "data")
	ctx := context.Background()

	ok, err := s.HeadObject(ctx, "abc", "cache-1.tar.gz")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.HeadObject(ctx, "abc", "cache-2.tar.gz")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_HeadObject_Forbidden(t *testing.T) {
	t.Parallel()

	s, fake := newTestStore(t)
	fake.failHead(http.StatusForbidden)

	ok, err := s.HeadObject(context.Background(), "abc", "cache.tar.gz")
	require.Error(t, err)
	assert.False(t, ok)
	assert.Contains(t, err.Error(), "s3://bucket/abc/cache.tar.gz")
}

// Not parallel: t.Setenv.
func TestNew_CABundleWithHTTPClient(t *testing.T) {
	tlsSrv := httptest.NewTLSServer(http.NotFoundHandler())
	t.Cleanup(tlsSrv.Close)
	bundle := filepath.Join(t.TempDir(), "ca.pem")
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: tlsSrv.Certificate().Raw})
	require.NoError(t, os.WriteFile(bundle, pemBytes, 0o600))
	t.Setenv("AWS_CA_BUNDLE", bundle)

	s, fake := newTestStore(t)
	fake.put("abc/cache.tar.gz", "data")

	ok, err := s.HeadObject(context.Background(), "abc", "cache.tar.gz")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_PutObject(t *testing.T) {
	t.Parallel()

	s, fake := newTestStore(t, WithPrefix("ci/"))
	payload := "gzip archive bytes"

	err := s.PutObject(context.Background(), "abc", "cache.tar.gz", strings.NewReader(payload), int64(len(payload)))
	require.NoError(t, err)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.puts, 1)
	assert.Equal(t, "/bucket/ci/abc/cache.tar.gz", fake.puts[0].URL.Path)
	assert.Equal(t, ContentType, fake.puts[0].Header.Get("Content-Type"))
	assert.Contains(t, fake.objects["ci/abc/cache.tar.gz"], payload)
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	respErr := func(status int) error {
		return &awshttp.ResponseError{ResponseError: &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: &http.Response{StatusCode: status}},
			Err:      errors.New("response error"),
		}}
	}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "typed not found", err: &types.NotFound{}, want: true},
		{name: "typed no such key", err: &types.NoSuchKey{}, want: true},
		{name: "api error code", err: &smithy.GenericAPIError{Code: "NoSuchKey"}, want: true},
		{name: "http 404", err: respErr(http.StatusNotFound), want: true},
		{name: "http 403", err: respErr(http.StatusForbidden), want: false},
		{name: "access denied", err: &smithy.GenericAPIError{Code: "AccessDenied"}, want: false},
		{name: "plain error", err: errors.New("dial tcp: refused"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, isNotFound(tt.err))
		})
	}
}

func TestNormalizePrefix(t *testing.T) {
	t.Parallel()

	assert.Empty(t, NormalizePrefix(""))
	assert.Empty(t, NormalizePrefix("/"))
	assert.Equal(t, "a/b/", NormalizePrefix("a/b"))
	assert.Equal(t, "a/b/", NormalizePrefix("/a/b/"))
}
