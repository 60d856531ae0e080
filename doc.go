// Package buildcache saves build artifacts to a remote object store at the
// end of a CI job so later jobs can restore them.
//
// A save is addressed by a cache key and an archive name derived from the
// configured path patterns. [Saver.Save] skips the upload when the restore
// step already hit the same key or when the object store already holds the
// entry. Otherwise it expands the patterns, writes a tar+gzip archive to a
// private temporary file, uploads it, and removes the file on every path.
//
// # Quick Start
//
//	store, err := s3.New(ctx, "my-cache-bucket", s3.WithPrefix("ci"))
//	if err != nil {
//	    return err
//	}
//	res, err := buildcache.New(store).Save(ctx, buildcache.Request{
//	    PathInput: "node_modules\n~/.npm",
//	    KeyInput:  "npm-linux-" + lockHash,
//	})
//
// Object store implementations live under store/: s3 for S3 and compatible
// services, oci for OCI registries, and memstore for tests and dry runs.
package buildcache
