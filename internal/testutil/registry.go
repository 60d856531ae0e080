package testutil

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// Registry is an in-memory OCI distribution endpoint serving the subset of
// the API needed to resolve tags and push blobs and manifests.
type Registry struct {
	srv *httptest.Server

	mu        sync.Mutex
	blobs     map[string][]byte // repo@digest -> content
	manifests map[string][]byte // repo:tag -> manifest
	uploads   int
	blobPuts  int
	status    int
}

// NewRegistry starts a Registry that is shut down when tb finishes.
func NewRegistry(tb testing.TB) *Registry {
	tb.Helper()
	r := &Registry{
		blobs:     make(map[string][]byte),
		manifests: make(map[string][]byte),
	}
	r.srv = httptest.NewServer(http.HandlerFunc(r.serve))
	tb.Cleanup(r.srv.Close)
	return r
}

// Host returns the registry's host:port.
func (r *Registry) Host() string {
	return strings.TrimPrefix(r.srv.URL, "http://")
}

// Client returns an HTTP client for the server.
func (r *Registry) Client() *http.Client {
	return r.srv.Client()
}

// Blob returns a stored blob.
func (r *Registry) Blob(repo string, d digest.Digest) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.blobs[repo+"@"+d.String()]
	return b, ok
}

// Manifest returns the manifest stored under tag.
func (r *Registry) Manifest(repo, tag string) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.manifests[repo+":"+tag]
	return b, ok
}

// BlobUploads returns the number of completed blob uploads.
func (r *Registry) BlobUploads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.blobPuts
}

// FailWith makes every later request answer with status. Zero restores
// normal behavior.
func (r *Registry) FailWith(status int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = status
}

func (r *Registry) serve(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	status := r.status
	r.mu.Unlock()
	if status != 0 {
		w.WriteHeader(status)
		return
	}
	path := strings.TrimPrefix(req.URL.Path, "/v2/")
	if path == "" {
		w.WriteHeader(http.StatusOK)
		return
	}

	switch {
	case strings.Contains(path, "/blobs/uploads/"):
		repo, id, _ := strings.Cut(path, "/blobs/uploads/")
		r.serveUpload(w, req, repo, id)
	case strings.Contains(path, "/blobs/"):
		repo, d, _ := strings.Cut(path, "/blobs/")
		r.serveBlob(w, req, repo, d)
	case strings.Contains(path, "/manifests/"):
		repo, ref, _ := strings.Cut(path, "/manifests/")
		r.serveManifest(w, req, repo, ref)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (r *Registry) serveBlob(w http.ResponseWriter, req *http.Request, repo, d string) {
	data, ok := r.Blob(repo, digest.Digest(d))
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	w.Header().Set("Docker-Content-Digest", d)
	w.WriteHeader(http.StatusOK)
	if req.Method == http.MethodGet {
		_, _ = w.Write(data)
	}
}

func (r *Registry) serveUpload(w http.ResponseWriter, req *http.Request, repo, id string) {
	switch req.Method {
	case http.MethodPost:
		r.mu.Lock()
		r.uploads++
		n := r.uploads
		r.mu.Unlock()
		w.Header().Set("Location", fmt.Sprintf("/v2/%s/blobs/uploads/%d", repo, n))
		w.WriteHeader(http.StatusAccepted)
	case http.MethodPut:
		data, err := io.ReadAll(req.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		d := digest.Digest(req.URL.Query().Get("digest"))
		if d.Validate() != nil || digest.FromBytes(data) != d || id == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		r.mu.Lock()
		r.blobs[repo+"@"+d.String()] = data
		r.blobPuts++
		r.mu.Unlock()
		w.Header().Set("Docker-Content-Digest", d.String())
		w.WriteHeader(http.StatusCreated)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (r *Registry) serveManifest(w http.ResponseWriter, req *http.Request, repo, ref string) {
	switch req.Method {
	case http.MethodHead, http.MethodGet:
		data, ok := r.Manifest(repo, ref)
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", ocispec.MediaTypeImageManifest)
		w.Header().Set("Content-Length", fmt.Sprint(len(data)))
		w.Header().Set("Docker-Content-Digest", digest.FromBytes(data).String())
		w.WriteHeader(http.StatusOK)
		if req.Method == http.MethodGet {
			_, _ = w.Write(data)
		}
	case http.MethodPut:
		data, err := io.ReadAll(req.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		r.mu.Lock()
		r.manifests[repo+":"+ref] = data
		r.mu.Unlock()
		w.Header().Set("Docker-Content-Digest", digest.FromBytes(data).String())
		w.WriteHeader(http.StatusCreated)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
