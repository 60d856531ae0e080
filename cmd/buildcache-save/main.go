// Command buildcache-save is the post step of the build cache action. It
// archives the configured paths and uploads them under the cache key unless
// the entry was just restored or already exists.
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/meigma/buildcache"
	"github.com/meigma/buildcache/archive"
	"github.com/meigma/buildcache/internal/actions"
	"github.com/meigma/buildcache/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand(actions.OS, os.Stdout).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCommand(env actions.Env, out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "buildcache-save",
		Short:         "Save build artifacts to the cache",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := slog.New(actions.NewHandler(env.Action(out), env.LogLevel()))
			if err := run(cmd.Context(), env, cmd, logger); err != nil {
				logger.Error(err.Error())
				return err
			}
			return nil
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func run(ctx context.Context, env actions.Env, cmd *cobra.Command, logger *slog.Logger) error {
	cfg, err := config.Load(env, cmd.Flags())
	if err != nil {
		return err
	}

	store, err := cfg.OpenStore(ctx, logger)
	if err != nil {
		return err
	}

	saver := buildcache.New(store,
		buildcache.WithLogger(logger),
		buildcache.WithTempDir(cfg.TempDir),
		buildcache.WithArchiveOptions(archive.WithCompressionLevel(cfg.CompressionLevel)),
	)
	res, err := saver.Save(ctx, buildcache.Request{
		Record:    config.RestoreRecord(env),
		PathInput: cfg.Path,
		KeyInput:  cfg.Key,
	})
	if err != nil {
		return err
	}
	if cfg.DryRun && !res.Skipped {
		logger.Info("dry run, archive was not uploaded", "name", res.Name, "size", res.Size)
	}
	return nil
}
