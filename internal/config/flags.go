package config

import "github.com/spf13/pflag"

// RegisterFlags adds a flag for every setting to fs. Flags default to their
// zero value; only flags set on the command line take effect.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(Path, "", "files, directories, and patterns to cache, separated by newlines or commas")
	fs.String(Key, "", "cache key to save under")
	fs.String(Backend, "", "object store backend: s3, oci, or memory")
	fs.String(Bucket, "", "S3 bucket")
	fs.String(Prefix, "", "S3 object key prefix")
	fs.String(Region, "", "S3 region")
	fs.String(Endpoint, "", "S3-compatible endpoint URL")
	fs.Bool(ForcePathStyle, false, "use path-style S3 addressing")
	fs.String(Repository, "", "OCI repository, such as ghcr.io/acme/cache")
	fs.Bool(PlainHTTP, false, "talk to the OCI registry over plain HTTP")
	fs.String(RegistryUsername, "", "OCI registry username")
	fs.String(RegistryPassword, "", "OCI registry password")
	fs.Int(CompressionLevel, 0, "gzip compression level (-2 to 9)")
	fs.String(TempDir, "", "directory for the temporary archive")
	fs.String(StoreConfig, "", "TOML file with store settings")
	fs.Bool(DryRun, false, "build the archive but keep it in memory instead of uploading")
}
