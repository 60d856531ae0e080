// Package config assembles the save step's settings from action inputs, an
// optional TOML store file, and command-line flags.
//
// Precedence, highest first: flags that were explicitly set, non-empty action
// inputs, the store file, defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/klauspost/compress/gzip"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"

	"github.com/meigma/buildcache"
	"github.com/meigma/buildcache/archive"
	"github.com/meigma/buildcache/internal/actions"
)

// Input and flag names.
const (
	Path             = "path"
	Key              = "key"
	Backend          = "backend"
	Bucket           = "bucket"
	Prefix           = "prefix"
	Region           = "region"
	Endpoint         = "endpoint"
	ForcePathStyle   = "force-path-style"
	Repository       = "repository"
	PlainHTTP        = "plain-http"
	RegistryUsername = "registry-username"
	RegistryPassword = "registry-password"
	CompressionLevel = "compression-level"
	TempDir          = "temp-dir"
	StoreConfig      = "store-config"
	DryRun           = "dry-run"
)

// State names written by the restore step.
const (
	StateCachePath       = "cachePath"
	StateCacheKey        = "cacheKey"
	StateCacheMatchedKey = "cacheMatchedKey"
)

// Supported backends.
const (
	BackendS3     = "s3"
	BackendOCI    = "oci"
	BackendMemory = "memory"
)

var (
	// ErrInvalidConfig is returned when settings are missing or malformed.
	ErrInvalidConfig = errors.New("config: invalid configuration")
)

// inputs lists every setting read from action inputs, in precedence order.
var inputs = []string{
	Path, Key, Backend, Bucket, Prefix, Region, Endpoint, ForcePathStyle,
	Repository, PlainHTTP, RegistryUsername, RegistryPassword,
	CompressionLevel, TempDir,
}

// Config holds the resolved settings.
type Config struct {
	// Path and Key are the raw inputs; the saver splits and validates them.
	Path string `toml:"-"`
	Key  string `toml:"-"`

	Backend          string    `toml:"backend"`
	CompressionLevel int       `toml:"compression_level"`
	TempDir          string    `toml:"temp_dir"`
	S3               S3Config  `toml:"s3"`
	OCI              OCIConfig `toml:"oci"`

	DryRun bool `toml:"-"`
}

// S3Config configures the s3 backend.
type S3Config struct {
	Bucket         string `toml:"bucket"`
	Prefix         string `toml:"prefix"`
	Region         string `toml:"region"`
	Endpoint       string `toml:"endpoint"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// OCIConfig configures the oci backend.
type OCIConfig struct {
	Repository string `toml:"repository"`
	PlainHTTP  bool   `toml:"plain_http"`
	Username   string `toml:"username"`
	Password   string `toml:"password"`
}

// Default returns the settings used when nothing else is given.
func Default() Config {
	return Config{
		Backend:          BackendS3,
		CompressionLevel: gzip.DefaultCompression,
	}
}

// Load resolves the configuration from env and flags. flags may be nil.
func Load(env actions.Env, flags *pflag.FlagSet) (Config, error) {
	cfg := Default()
	cfg.TempDir = env.TempDir()

	file := env.Input(StoreConfig)
	if flags != nil {
		if f := flags.Lookup(StoreConfig); f != nil && f.Changed {
			file = f.Value.String()
		}
	}
	if file != "" {
		if err := cfg.LoadFile(file); err != nil {
			return Config{}, err
		}
	}

	for _, name := range inputs {
		if v := env.Input(name); v != "" {
			if err := cfg.Set(name, v); err != nil {
				return Config{}, fmt.Errorf("input %q: %w", name, err)
			}
		}
	}

	if flags != nil {
		var flagErr error
		flags.Visit(func(f *pflag.Flag) {
			if flagErr != nil || f.Name == StoreConfig {
				return
			}
			if err := cfg.Set(f.Name, f.Value.String()); err != nil {
				flagErr = fmt.Errorf("flag --%s: %w", f.Name, err)
			}
		})
		if flagErr != nil {
			return Config{}, flagErr
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile overlays the TOML store file at path onto c. Unknown keys are
// rejected.
func (c *Config) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: open store config: %w", ErrInvalidConfig, err)
	}
	defer f.Close()

	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("%w: parse %s: %w", ErrInvalidConfig, path, err)
	}
	return nil
}

// Set assigns one named setting from its string form. Unknown names are
// ignored so unrelated flags can share the flag set.
func (c *Config) Set(name, value string) error {
	switch name {
	case Path:
		c.Path = value
	case Key:
		c.Key = value
	case Backend:
		c.Backend = value
	case Bucket:
		c.S3.Bucket = value
	case Prefix:
		c.S3.Prefix = value
	case Region:
		c.S3.Region = value
	case Endpoint:
		c.S3.Endpoint = value
	case ForcePathStyle:
		return setBool(&c.S3.ForcePathStyle, value)
	case Repository:
		c.OCI.Repository = value
	case PlainHTTP:
		return setBool(&c.OCI.PlainHTTP, value)
	case RegistryUsername:
		c.OCI.Username = value
	case RegistryPassword:
		c.OCI.Password = value
	case CompressionLevel:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: compression level %q is not an integer", ErrInvalidConfig, value)
		}
		c.CompressionLevel = n
	case TempDir:
		c.TempDir = value
	case DryRun:
		return setBool(&c.DryRun, value)
	}
	return nil
}

func setBool(dst *bool, value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("%w: %q is not a boolean", ErrInvalidConfig, value)
	}
	*dst = b
	return nil
}

// Validate checks that the selected backend has what it needs.
func (c *Config) Validate() error {
	if !archive.ValidCompressionLevel(c.CompressionLevel) {
		return fmt.Errorf("%w: compression level %d out of range", ErrInvalidConfig, c.CompressionLevel)
	}
	if c.DryRun {
		return nil
	}
	switch c.Backend {
	case BackendS3:
		if c.S3.Bucket == "" {
			return fmt.Errorf("%w: %s backend requires %q", ErrInvalidConfig, BackendS3, Bucket)
		}
	case BackendOCI:
		if c.OCI.Repository == "" {
			return fmt.Errorf("%w: %s backend requires %q", ErrInvalidConfig, BackendOCI, Repository)
		}
		if (c.OCI.Username == "") != (c.OCI.Password == "") {
			return fmt.Errorf("%w: %q and %q must be set together", ErrInvalidConfig, RegistryUsername, RegistryPassword)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, c.Backend)
	}
	return nil
}

// RestoreRecord reads what the restore step saved into workflow state.
func RestoreRecord(env actions.Env) buildcache.RestoreRecord {
	return buildcache.RestoreRecord{
		Path:       buildcache.SplitInput(env.State(StateCachePath)),
		Key:        env.State(StateCacheKey),
		MatchedKey: env.State(StateCacheMatchedKey),
	}
}
